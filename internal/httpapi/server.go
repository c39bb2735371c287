package httpapi

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/attendance"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/audit"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/auth"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/config"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/httpmiddleware"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/identity"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/queue"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/roster"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/session"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/token"
)

// Server holds the wired core services and exposes them over gin routes.
type Server struct {
	cfg      config.App
	sessions *session.Service
	recorder *attendance.Recorder
	rosters  *roster.Service
	tokens   *token.Service
	idp      *identity.Client
	q        queue.Queue
}

// New assembles the HTTP surface.
func New(cfg config.App, sessions *session.Service, recorder *attendance.Recorder, rosters *roster.Service, tokens *token.Service, idp *identity.Client, q queue.Queue) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		recorder: recorder,
		rosters:  rosters,
		tokens:   tokens,
		idp:      idp,
		q:        q,
	}
}

// Register mounts all versioned routes on the engine.
func (s *Server) Register(r *gin.Engine) {
	r.POST("/v1/users/:uid", s.bootstrapUser)

	authed := r.Group("/v1", auth.UserAuth(s.cfg.JWTSigningKey, s.cfg.JWTIssuer))

	faculty := authed.Group("/faculty", auth.RequireRole(auth.RoleFaculty))
	faculty.POST("/sessions", s.openSession)
	faculty.GET("/sessions", s.listSessions)
	faculty.GET("/sessions/recent", s.recentSessions)
	faculty.POST("/sessions/:id/qr", s.issueToken)
	faculty.POST("/sessions/:id/advance", s.advancePhase)
	faculty.POST("/sessions/:id/close", s.closeSession)
	faculty.GET("/sessions/:id/attendance", s.sessionAttendance)
	faculty.GET("/sessions/:id/attendance/full", s.fullAttendance)
	faculty.PUT("/sessions/:id/attendance", s.correctAttendance)
	faculty.POST("/classes", s.addClass)
	faculty.GET("/classes", s.classesByFaculty)
	faculty.GET("/classes/:id", s.classDetail)

	student := authed.Group("/student", auth.RequireRole(auth.RoleStudent))
	scanThrottle := httpmiddleware.NewScanThrottle(s.cfg.ScanPerSecond)
	student.POST("/scan", scanThrottle.KeyedGinMiddleware(func(c *gin.Context) string {
		if claims, ok := auth.ClaimsFrom(c); ok {
			return claims.UID
		}
		return c.ClientIP()
	}), s.scan)
	student.GET("/attendance", s.studentAttendance)
}

// publishAudit pushes an event to the audit queue. Audit is best effort; a
// queue failure never fails the request that produced the event.
func (s *Server) publishAudit(ctx context.Context, e audit.Event) {
	if s.q == nil {
		return
	}
	if err := s.q.Publish(ctx, queue.Message{Kind: e.Kind, Body: e.Encode()}); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
