package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/attendance"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/roster"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/session"
)

func (s *Server) sessionAttendance(c *gin.Context) {
	records, err := s.recorder.BySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, "session attendance", err)
		return
	}
	if len(records) == 0 {
		fail(c, http.StatusNotFound, "No attendance records found", "NO_ATTENDANCE")
		return
	}
	ok(c, http.StatusOK, "Attendance fetched successfully", records)
}

type mergedRecord struct {
	StudentID string            `json:"studentId"`
	Name      string            `json:"name"`
	Status    attendance.Status `json:"status"`
}

// fullAttendance merges the class roster with the session's records; roster
// members without a record report ABSENT.
func (s *Server) fullAttendance(c *gin.Context) {
	sess, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		fail(c, http.StatusNotFound, "Session not found", "SESSION_NOT_FOUND")
		return
	}
	if err != nil {
		internalError(c, "session lookup", err)
		return
	}
	if sess.VenueKind != session.VenueClassroom || sess.ClassID == "" {
		fail(c, http.StatusNotFound, "Session has no class roster", "CLASS_NOT_FOUND")
		return
	}

	_, students, err := s.rosters.ClassDetail(c.Request.Context(), sess.ClassID)
	if errors.Is(err, roster.ErrClassNotFound) {
		fail(c, http.StatusNotFound, "Class not found", "CLASS_NOT_FOUND")
		return
	}
	if err != nil {
		internalError(c, "class roster", err)
		return
	}

	records, err := s.recorder.BySession(c.Request.Context(), sess.SessionID)
	if err != nil {
		internalError(c, "session attendance", err)
		return
	}
	statusByStudent := make(map[string]attendance.Status, len(records))
	for _, rec := range records {
		statusByStudent[rec.StudentID] = rec.Status
	}

	merged := make([]mergedRecord, 0, len(students))
	for _, st := range students {
		status, found := statusByStudent[st.StudentID]
		if !found {
			status = attendance.StatusAbsent
		}
		merged = append(merged, mergedRecord{StudentID: st.StudentID, Name: st.Name, Status: status})
	}
	ok(c, http.StatusOK, "Full attendance fetched", merged)
}

type correctionEntry struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
}

type correctionRequest struct {
	Attendance []correctionEntry `json:"attendance"`
}

func (s *Server) correctAttendance(c *gin.Context) {
	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Attendance == nil {
		fail(c, http.StatusBadRequest, "Attendance must be an array", "INVALID_ATTENDANCE_DATA")
		return
	}

	statuses := make(map[string]attendance.Status)
	for _, entry := range req.Attendance {
		if entry.StudentID == "" {
			continue
		}
		switch status := attendance.Status(entry.Status); status {
		case attendance.StatusIncomplete, attendance.StatusPresent, attendance.StatusAbsent:
			statuses[entry.StudentID] = status
		}
	}
	if len(statuses) == 0 {
		fail(c, http.StatusBadRequest, "No valid attendance records provided", "EMPTY_ATTENDANCE")
		return
	}

	if err := s.recorder.Correct(c.Request.Context(), c.Param("id"), statuses, time.Now().UTC()); err != nil {
		internalError(c, "attendance correction", err)
		return
	}
	ok(c, http.StatusOK, "Attendance saved successfully", nil)
}
