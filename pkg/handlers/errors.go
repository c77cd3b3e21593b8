package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/duty-roster-go/pkg/auth"
	"github.com/arnavshah/duty-roster-go/pkg/calendar"
	"github.com/arnavshah/duty-roster-go/pkg/repository"
	"github.com/arnavshah/duty-roster-go/pkg/scheduler"
)

// ErrConflict is returned when an action would put a member on a service twice
var ErrConflict = errors.New("member already assigned to this service")

func statusOf(err error) int {
	switch {
	case errors.Is(err, scheduler.ErrInvalidMonth), errors.Is(err, calendar.ErrInvalidTime):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidKey), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response for err; unexpected errors are logged and hidden
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
