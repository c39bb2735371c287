package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every error response shares one wire shape; errorCode is the stable
// machine-readable contract, message is for humans.
func fail(c *gin.Context, status int, message, code string) {
	c.JSON(status, gin.H{
		"success":   false,
		"message":   message,
		"errorCode": code,
	})
}

func ok(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// internalError logs the full cause and returns an opaque 500. Details of
// persistence or unexpected failures never reach the caller.
func internalError(c *gin.Context, op string, err error) {
	log.Printf("%s failed: %v", op, err)
	fail(c, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
}
