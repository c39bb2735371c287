package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/attendance"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/audit"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/auth"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/geo"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/metrics"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/session"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/token"
)

type scanRequest struct {
	Token    string        `json:"token" binding:"required"`
	DeviceID string        `json:"deviceId"`
	Location *locationBody `json:"location"`
}

// scan is the attendee-facing presence proof: token verification, geofence,
// then the atomic record update. Each rejection is a definitive outcome; the
// client does not retry except on INTERNAL_ERROR.
func (s *Server) scan(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	studentID := claims.UID

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Location == nil {
		s.rejectScan(c, "", studentID, http.StatusBadRequest, "Missing required scan data", "MISSING_SCAN_DATA")
		return
	}

	now := time.Now().UTC()
	res, err := s.tokens.Verify(c.Request.Context(), req.Token, now)
	switch {
	case errors.Is(err, token.ErrMalformed):
		s.rejectScan(c, "", studentID, http.StatusBadRequest, "Invalid or tampered QR code", "INVALID_QR")
		return
	case errors.Is(err, token.ErrInvalidSignature):
		// Signature mismatch on a structurally valid token is a tamper signal.
		log.Printf("scan signature mismatch: student=%s", studentID)
		s.rejectScan(c, "", studentID, http.StatusBadRequest, "Invalid or tampered QR code", "INVALID_QR")
		return
	case errors.Is(err, token.ErrExpired):
		s.rejectScan(c, "", studentID, http.StatusGone, "QR code has expired", "QR_EXPIRED")
		return
	case err != nil:
		internalError(c, "token verify", err)
		return
	}

	sess, err := s.sessions.Get(c.Request.Context(), res.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		s.rejectScan(c, res.SessionID, studentID, http.StatusNotFound, "Session not found", "SESSION_NOT_FOUND")
		return
	}
	if err != nil {
		internalError(c, "session lookup", err)
		return
	}
	if sess.State == session.StateClosed {
		s.rejectScan(c, sess.SessionID, studentID, http.StatusForbidden, "Session already closed", "SESSION_CLOSED")
		return
	}

	inside, err := geo.WithinGeofence(req.Location.Lat, req.Location.Lng, sess.Lat, sess.Lng, sess.RadiusM)
	if err != nil {
		s.rejectScan(c, sess.SessionID, studentID, http.StatusBadRequest, "Invalid location data", "INVALID_LOCATION")
		return
	}
	if !inside {
		s.rejectScan(c, sess.SessionID, studentID, http.StatusForbidden, "Outside the session geofence", "OUTSIDE_GEOFENCE")
		return
	}

	rec, err := s.recorder.ApplyScan(c.Request.Context(), sess.SessionID, studentID, res.Phase, req.DeviceID, now)
	switch {
	case errors.Is(err, attendance.ErrStartAlreadyMarked):
		s.rejectScan(c, sess.SessionID, studentID, http.StatusConflict, "Start attendance already marked", "START_ALREADY_MARKED")
		return
	case errors.Is(err, attendance.ErrStartNotMarked):
		s.rejectScan(c, sess.SessionID, studentID, http.StatusConflict, "Start attendance not marked yet", "START_NOT_MARKED")
		return
	case errors.Is(err, attendance.ErrEndAlreadyMarked):
		s.rejectScan(c, sess.SessionID, studentID, http.StatusConflict, "End attendance already marked", "END_ALREADY_MARKED")
		return
	case err != nil:
		internalError(c, "scan apply", err)
		return
	}

	metrics.Scans.WithLabelValues("ok").Inc()
	s.publishAudit(c.Request.Context(), audit.NewEvent(audit.KindScan, sess.SessionID, studentID, "ok", string(res.Phase)))
	ok(c, http.StatusOK, "Attendance recorded successfully", rec)
}

// rejectScan answers with the wire error and feeds metrics and audit so
// rejected attempts stay visible.
func (s *Server) rejectScan(c *gin.Context, sessionID, studentID string, status int, message, code string) {
	metrics.Scans.WithLabelValues(code).Inc()
	if sessionID != "" {
		s.publishAudit(c.Request.Context(), audit.NewEvent(audit.KindScan, sessionID, studentID, code, ""))
	}
	fail(c, status, message, code)
}

func (s *Server) studentAttendance(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	records, err := s.recorder.ByStudent(c.Request.Context(), claims.UID)
	if err != nil {
		internalError(c, "student attendance", err)
		return
	}
	if len(records) == 0 {
		ok(c, http.StatusOK, "No attendance records found", []attendance.Record{})
		return
	}
	ok(c, http.StatusOK, "Attendance history fetched", records)
}
