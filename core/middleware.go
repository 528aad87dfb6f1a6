package core

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const sessionContextKey = "session"

// CORSMiddleware validates Origin/Referer against the allowed list and sets CORS headers.
// An empty list admits every origin.
func CORSMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" || len(allowed) == 0 {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			if referer := c.GetHeader("Referer"); referer != "" {
				if u, err := url.Parse(referer); err == nil && u.Host != "" {
					origin = u.Scheme + "://" + u.Host
				}
			}
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		// Preflight handling
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
}

// RequireSession verifies the Authorization token before any handler runs and
// stores the Session in the gin context. Non-valid outcomes abort.
func RequireSession(sessions *SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Verify(c.Request.Context(), extractToken(c))
		if err != nil {
			log.Printf("session verification failed path=%s err=%v", c.Request.URL.Path, err)
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "account store unavailable")
			c.Abort()
			return
		}
		if sess.Status != SessionValid {
			respondSessionStatus(c, sess.Status)
			c.Abort()
			return
		}
		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// currentAccount returns the account stored by RequireSession.
func currentAccount(c *gin.Context) Account {
	v, _ := c.Get(sessionContextKey)
	sess, _ := v.(Session)
	return sess.Account
}

// extractToken accepts both a bare token and "Bearer <token>".
func extractToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}
