package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// SessionHTTPStatus maps a non-valid outcome to its fixed status code.
func SessionHTTPStatus(s SessionStatus) int {
	switch s {
	case SessionValid:
		return http.StatusOK
	case SessionExpired:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

func respondSessionStatus(c *gin.Context, s SessionStatus) {
	switch s {
	case SessionExpired:
		respondError(c, SessionHTTPStatus(s), "SESSION_EXPIRED", "session expired")
	default:
		respondError(c, SessionHTTPStatus(s), "UNAUTHORIZED", "invalid user or session")
	}
}
