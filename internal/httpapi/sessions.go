package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/audit"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/auth"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/metrics"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/session"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/token"
)

type locationBody struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type openSessionRequest struct {
	VenueKind  string        `json:"venueKind"`
	ClassID    string        `json:"classId"`
	ClassName  string        `json:"className"`
	BlockName  string        `json:"blockName"`
	HourNumber int           `json:"hourNumber"`
	VenueName  string        `json:"venueName"`
	Location   *locationBody `json:"location"`
	Radius     float64       `json:"radius"`
}

func (s *Server) openSession(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)

	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Location == nil {
		fail(c, http.StatusBadRequest, "Missing required session details", "MISSING_FIELDS")
		return
	}
	kind := session.VenueKind(req.VenueKind)
	if kind == "" {
		kind = session.VenueClassroom
	}

	sess, err := s.sessions.Open(c.Request.Context(), session.OpenConfig{
		FacultyID:  claims.UID,
		VenueKind:  kind,
		ClassID:    req.ClassID,
		ClassName:  req.ClassName,
		BlockName:  req.BlockName,
		HourNumber: req.HourNumber,
		VenueName:  req.VenueName,
		Lat:        req.Location.Lat,
		Lng:        req.Location.Lng,
		RadiusM:    req.Radius,
	})
	switch {
	case errors.Is(err, session.ErrMissingFields):
		fail(c, http.StatusBadRequest, "Missing required session details", "MISSING_FIELDS")
		return
	case errors.Is(err, session.ErrDuplicate):
		fail(c, http.StatusConflict, "Session already exists for this hour", "SESSION_ALREADY_EXISTS")
		return
	case err != nil:
		internalError(c, "session open", err)
		return
	}

	metrics.SessionsOpened.Inc()
	ok(c, http.StatusCreated, "Session started successfully", sess)
}

type issueTokenRequest struct {
	Type            string `json:"type"`
	QRExpirySeconds int    `json:"qrExpirySeconds"`
}

func (s *Server) issueToken(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "sessionId and type are required", "INVALID_QR_REQUEST")
		return
	}

	var phase token.Phase
	switch req.Type {
	case "", string(token.PhaseStart), string(token.PhaseEnd):
		phase = token.Phase(req.Type)
	default:
		fail(c, http.StatusBadRequest, "Invalid QR type", "INVALID_QR_TYPE")
		return
	}

	issued, err := s.sessions.IssueToken(c.Request.Context(), c.Param("id"), phase, time.Duration(req.QRExpirySeconds)*time.Second)
	switch {
	case errors.Is(err, session.ErrInvalidExpiry):
		fail(c, http.StatusBadRequest, "Invalid QR expiry time", "INVALID_QR_EXPIRY")
		return
	case errors.Is(err, session.ErrNotFound):
		fail(c, http.StatusNotFound, "Session not found", "SESSION_NOT_FOUND")
		return
	case errors.Is(err, session.ErrAlreadyClosed):
		fail(c, http.StatusForbidden, "Session already closed", "SESSION_CLOSED")
		return
	case errors.Is(err, session.ErrPhaseMismatch):
		fail(c, http.StatusBadRequest, "Invalid QR type", "INVALID_QR_TYPE")
		return
	case err != nil:
		internalError(c, "token issue", err)
		return
	}

	metrics.TokensIssued.WithLabelValues(string(issued.Payload.Phase)).Inc()
	ok(c, http.StatusOK, "QR generated successfully", issued)
}

func (s *Server) advancePhase(c *gin.Context) {
	sess, err := s.sessions.AdvancePhase(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, session.ErrNotFound):
		fail(c, http.StatusNotFound, "Session not found", "SESSION_NOT_FOUND")
		return
	case errors.Is(err, session.ErrInvalidTransition):
		fail(c, http.StatusConflict, "Session cannot advance from its current state", "INVALID_TRANSITION")
		return
	case err != nil:
		internalError(c, "session advance", err)
		return
	}
	ok(c, http.StatusOK, "Session advanced to end phase", sess)
}

func (s *Server) closeSession(c *gin.Context) {
	sessionID := c.Param("id")
	_, absentMarked, err := s.sessions.Close(c.Request.Context(), sessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		fail(c, http.StatusNotFound, "Session not found", "SESSION_NOT_FOUND")
		return
	case errors.Is(err, session.ErrAlreadyClosed):
		fail(c, http.StatusConflict, "Session already closed", "SESSION_ALREADY_CLOSED")
		return
	case err != nil:
		internalError(c, "session close", err)
		return
	}

	metrics.SessionsClosed.Inc()
	metrics.AbsentMarked.Add(float64(absentMarked))
	s.publishAudit(c.Request.Context(), audit.NewEvent(audit.KindSessionClose, sessionID, "", "ok", ""))
	ok(c, http.StatusOK, "Session closed and attendance finalized", gin.H{"absentMarked": absentMarked})
}

func (s *Server) listSessions(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	sessions, err := s.sessions.ListByFaculty(c.Request.Context(), claims.UID)
	if err != nil {
		internalError(c, "list sessions", err)
		return
	}
	if len(sessions) == 0 {
		fail(c, http.StatusNotFound, "No sessions found for faculty", "NO_SESSIONS")
		return
	}
	ok(c, http.StatusOK, "Sessions fetched successfully", sessions)
}

func (s *Server) recentSessions(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	sessions, err := s.sessions.Recent(c.Request.Context(), claims.UID)
	if err != nil {
		internalError(c, "recent sessions", err)
		return
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	ok(c, http.StatusOK, "Recent sessions fetched", sessions)
}
