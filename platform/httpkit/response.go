package httpkit

import (
	"context"
	"errors"
	"net/http"

	"nurture_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// statusClientClosed is reported when the caller went away before the handler finished.
const statusClientClosed = 499

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ItemsResponse wraps list replies.
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// JSON writes payload with status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes payload with 200.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Created writes a newly created resource with 201.
func Created(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// Items writes a list reply. A nil slice is sent as an empty list.
func Items[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, ItemsResponse[T]{Items: items, Count: len(items)})
}

// Error writes an error reply carrying the request id.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{
		Error:     message,
		Details:   details,
		RequestID: c.Writer.Header().Get("X-Request-ID"),
	})
}

// HandleError writes the reply for err and reports whether there was one.
// *apperr.Error values use their kind; anything else is a 500.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		Error(c, appErr.HTTPStatus(), appErr.Message, appErr.Details)
	case errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil:
		c.AbortWithStatus(statusClientClosed)
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "internal error", nil)
	}
	return true
}
