package core

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, sessions *SessionService, accounts AccountRepository) *gin.Engine {
	r := gin.Default()

	r.Use(CORSMiddleware(cfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.MetricsEnabled {
		r.GET(firstNonEmpty(cfg.MetricsPath, "/metrics"), MetricsHandler())
	}

	r.POST("/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
			return
		}
		if strings.TrimSpace(req.Username) == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "empty or missing username")
			return
		}
		if req.Password == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "empty or missing password")
			return
		}

		token, err := sessions.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, ErrMissingCredentials):
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "empty or missing credentials")
			case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrInvalidCredentials):
				log.Printf("login rejected username=%q", req.Username)
				respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
			default:
				log.Printf("login failed username=%q err=%v", req.Username, err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "login failed")
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"apptoken": token})
	})

	r.POST("/logout", func(c *gin.Context) {
		sess, err := sessions.Logout(c.Request.Context(), extractToken(c))
		if err != nil {
			log.Printf("logout failed err=%v", err)
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "logout failed")
			return
		}
		if sess.Status != SessionValid {
			respondSessionStatus(c, sess.Status)
			return
		}
		log.Printf("session terminated username=%s jti=%s", sess.Claims.Identity, sess.Claims.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Session terminated"})
	})

	r.POST("/signup", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Name     string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
			return
		}
		if strings.TrimSpace(req.Username) == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username, password and name are required")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to hash password")
			return
		}
		id, err := accounts.Create(c.Request.Context(), req.Username, req.Name, string(hash))
		if err != nil {
			if errors.Is(err, ErrAccountExists) {
				respondError(c, http.StatusConflict, "CONFLICT", "username already taken")
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create account")
			return
		}
		token, err := sessions.Issue(req.Username)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to issue token")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": id, "token": token}})
	})

	r.GET("/api/leaderboard", func(c *gin.Context) {
		items, err := accounts.List(c.Request.Context())
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load leaderboard")
			return
		}
		c.JSON(http.StatusOK, leaderboard(items))
	})

	auth := r.Group("/", RequireSession(sessions))
	{
		auth.GET("/users", func(c *gin.Context) {
			items, err := accounts.List(c.Request.Context())
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list users")
				return
			}
			if items == nil {
				items = []Account{}
			}
			c.JSON(http.StatusOK, gin.H{"data": items})
		})

		auth.GET("/user/:username", func(c *gin.Context) {
			rec, err := accounts.FindByUsername(c.Request.Context(), c.Param("username"))
			if err != nil {
				respondStoreError(c, err, "unknown user")
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": rec.Account})
		})

		auth.PUT("/user/:username", func(c *gin.Context) {
			if !isSelf(c) {
				return
			}
			var req struct {
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "missing password")
				return
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to hash password")
				return
			}
			if err := accounts.UpdatePassword(c.Request.Context(), c.Param("username"), string(hash)); err != nil {
				respondStoreError(c, err, "unknown user")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
		})

		auth.DELETE("/user/:username", func(c *gin.Context) {
			if !isSelf(c) {
				return
			}
			if err := accounts.Delete(c.Request.Context(), c.Param("username")); err != nil {
				respondStoreError(c, err, "user not in the system")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
		})

		auth.POST("/addName", func(c *gin.Context) {
			var req struct {
				Name string `json:"name"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name cannot be empty")
				return
			}
			if err := accounts.UpdateName(c.Request.Context(), currentAccount(c).Username, req.Name); err != nil {
				respondStoreError(c, err, "User not found")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Name added successfully"})
		})

		auth.POST("/setTasks", func(c *gin.Context) {
			var req struct {
				Tasks []string `json:"tasks"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || req.Tasks == nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Tasks cannot be null")
				return
			}
			if err := accounts.SetTasks(c.Request.Context(), currentAccount(c).Username, req.Tasks); err != nil {
				respondStoreError(c, err, "User not found")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Completed tasks set successfully"})
		})

		auth.POST("/addTask", func(c *gin.Context) {
			task, ok := bindTask(c)
			if !ok {
				return
			}
			if err := accounts.AppendTask(c.Request.Context(), currentAccount(c).Username, task); err != nil {
				respondStoreError(c, err, "User not found")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Task added successfully"})
		})

		auth.POST("/removeTask", func(c *gin.Context) {
			task, ok := bindTask(c)
			if !ok {
				return
			}
			if err := accounts.RemoveTask(c.Request.Context(), currentAccount(c).Username, task); err != nil {
				if errors.Is(err, ErrTaskNotFound) {
					respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Task not found")
					return
				}
				respondStoreError(c, err, "User not found")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Task removed successfully"})
		})

		auth.GET("/getScore/:username", func(c *gin.Context) {
			rec, err := accounts.FindByUsername(c.Request.Context(), c.Param("username"))
			if err != nil {
				respondStoreError(c, err, "User not found")
				return
			}
			c.JSON(http.StatusOK, gin.H{"score": rec.Score()})
		})

		auth.POST("/carbon", func(c *gin.Context) {
			var req struct {
				Footprint *float64 `json:"footprint"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || req.Footprint == nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "footprint is required")
				return
			}
			if err := accounts.SetFootprint(c.Request.Context(), currentAccount(c).Username, *req.Footprint); err != nil {
				respondStoreError(c, err, "User not found")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Footprint added successfully"})
		})
	}

	return r
}

// LeaderboardEntry is one row of GET /api/leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// leaderboard orders accounts by score descending, then username.
func leaderboard(items []Account) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(items))
	for _, a := range items {
		out = append(out, LeaderboardEntry{Username: a.Username, Name: a.Name, Score: a.Score()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Username < out[j].Username
	})
	return out
}

func bindTask(c *gin.Context) (string, bool) {
	var req struct {
		Task string `json:"task"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Task) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Task cannot be null")
		return "", false
	}
	return req.Task, true
}

// isSelf rejects requests that target another user's account.
func isSelf(c *gin.Context) bool {
	if currentAccount(c).Username != c.Param("username") {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "cannot modify another user")
		return false
	}
	return true
}

func respondStoreError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, ErrAccountNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", notFound)
		return
	}
	log.Printf("account store error path=%s err=%v", c.Request.URL.Path, err)
	respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
}
