// Package handlers contains the HTTP endpoint implementations.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// respondError maps a domain error onto the wire shape
// {statusCode, message, error}.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrIndexerBusy):
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{
		"statusCode": status,
		"message":    err.Error(),
		"error":      http.StatusText(status),
	})
}
