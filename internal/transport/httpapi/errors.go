package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/SatNaingTun/SntImageBGChanger/internal/usecase"
	"github.com/SatNaingTun/SntImageBGChanger/internal/worker"
	"github.com/gin-gonic/gin"
)

var errBadUpload = errors.New("invalid upload")

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, usecase.ErrInvalidImage),
		errors.Is(err, usecase.ErrInvalidBackground),
		errors.Is(err, usecase.ErrInvalidColor),
		errors.Is(err, usecase.ErrInvalidVideo),
		errors.Is(err, filestore.ErrInvalidName),
		errors.Is(err, errBadUpload):
		return http.StatusBadRequest
	case errors.Is(err, filestore.ErrNotFound),
		errors.Is(err, entity.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, worker.ErrQueueFull),
		errors.Is(err, worker.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// uploadError keeps an oversized-body error visible and reports anything else
// as fallback.
func uploadError(err, fallback error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fallback
}

// respondError writes {"error": ...}. Internal errors are not echoed to clients.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
