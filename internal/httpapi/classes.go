package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/auth"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/roster"
)

type addClassRequest struct {
	ClassName   string           `json:"className" binding:"required"`
	FacultyName string           `json:"facultyName"`
	Students    []roster.Student `json:"students"`
}

func (s *Server) addClass(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)

	var req addClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Missing class details", "MISSING_CLASS_DATA")
		return
	}

	result, err := s.rosters.AddClass(c.Request.Context(), req.ClassName, claims.UID, req.FacultyName, req.Students)
	switch {
	case errors.Is(err, roster.ErrMissingFields):
		fail(c, http.StatusBadRequest, "Missing class details", "MISSING_CLASS_DATA")
		return
	case errors.Is(err, roster.ErrEmptyRoster):
		fail(c, http.StatusBadRequest, "Student roster required for new class", "EMPTY_ROSTER")
		return
	case err != nil:
		internalError(c, "add class", err)
		return
	}

	message := "New class created successfully"
	if result.Merged {
		message = "Faculty added to existing class"
	}
	ok(c, http.StatusOK, message, result)
}

func (s *Server) classesByFaculty(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	classes, err := s.rosters.ClassesByFaculty(c.Request.Context(), claims.UID)
	if err != nil {
		internalError(c, "list classes", err)
		return
	}
	if classes == nil {
		classes = []roster.Class{}
	}
	ok(c, http.StatusOK, "Classes fetched successfully", classes)
}

func (s *Server) classDetail(c *gin.Context) {
	cls, students, err := s.rosters.ClassDetail(c.Request.Context(), c.Param("id"))
	if errors.Is(err, roster.ErrClassNotFound) {
		fail(c, http.StatusNotFound, "Class not found", "CLASS_NOT_FOUND")
		return
	}
	if err != nil {
		internalError(c, "class detail", err)
		return
	}
	ok(c, http.StatusOK, "Class details fetched", gin.H{
		"classId":       cls.ClassID,
		"className":     cls.ClassName,
		"facultyNames":  cls.FacultyNames,
		"totalStudents": cls.TotalStudents,
		"createdAt":     cls.CreatedAt,
		"students":      students,
	})
}
