package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/syncpad/backend/internal/model"
	"github.com/syncpad/backend/internal/repository"
)

// AuthMiddleware resolves a bearer API token to a user and stores it in the
// request context. The hub itself never designs authentication; it only
// receives an already-resolved identity or none.
func AuthMiddleware(users *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if tok, ok := strings.CutPrefix(header, "Bearer "); ok && tok != "" {
			user, err := users.GetByAPIToken(c.Request.Context(), tok)
			if err == nil {
				c.Set("user", user)
			} else if !errors.Is(err, model.ErrUserNotFound) {
				sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve identity")
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// RequireAuth aborts requests without a resolved user.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORSMiddleware returns a CORS middleware for development.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
