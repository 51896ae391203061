// Package handlers provides HTTP API request handlers.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/syncpad/backend/internal/model"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// currentUser returns the user resolved by the auth middleware, or nil.
func currentUser(c *gin.Context) *model.User {
	if v, exists := c.Get("user"); exists {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}

// pathID parses a numeric path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		sendError(c, 400, "VALIDATION_ERROR", "invalid "+name)
		return 0, false
	}
	return id, true
}
