package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/auth"
)

type bootstrapRequest struct {
	Email     string `json:"email" binding:"required"`
	Role      string `json:"role" binding:"required"`
	FacultyID string `json:"facultyId"`
	IDToken   string `json:"idToken"`
}

// bootstrapUser exchanges an externally-authenticated uid for this service's
// own JWT pair. Identity belongs to the provider; the uid stays opaque here.
func (s *Server) bootstrapUser(c *gin.Context) {
	uid := c.Param("uid")

	var req bootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil || uid == "" {
		fail(c, http.StatusBadRequest, "Missing required user details", "MISSING_USER_DATA")
		return
	}
	if req.Role != auth.RoleStudent && req.Role != auth.RoleFaculty {
		fail(c, http.StatusBadRequest, "Unknown role", "INVALID_ROLE")
		return
	}

	verdict, err := s.idp.VerifyUser(c.Request.Context(), uid, req.IDToken)
	if err != nil {
		internalError(c, "identity verify", err)
		return
	}
	if !verdict.Verified {
		fail(c, http.StatusUnauthorized, "Identity could not be verified", "UNAUTHORIZED")
		return
	}

	subject := uid
	if req.Role == auth.RoleFaculty && req.FacultyID != "" {
		subject = req.FacultyID
	}
	pair, err := auth.Issue(subject, req.Role, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
	if err != nil {
		internalError(c, "token issue", err)
		return
	}

	ok(c, http.StatusOK, "User authenticated successfully", gin.H{
		"uid":          uid,
		"role":         req.Role,
		"email":        req.Email,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresAt":    pair.AccessExp.Unix(),
	})
}
