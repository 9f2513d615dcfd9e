package handler

import (
	"errors"
	"net/http"

	"github.com/gdugdh24/handshake-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors to HTTP statuses. Anything unknown is a 500
// and its message is not exposed.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrSelfConnection):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrChainNotFound),
		errors.Is(err, domain.ErrLinkNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrNotParticipant):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrDuplicate):
		status, message = http.StatusConflict, err.Error()
	default:
		_ = c.Error(err)
	}

	c.JSON(status, ErrorResponse{Error: message})
}

func callerID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.ContextUserID)
	if id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return "", false
	}
	return id, true
}

func isPrivileged(c *gin.Context) bool {
	return c.GetBool(middleware.ContextPrivileged)
}
