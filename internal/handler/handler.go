package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/pkg/middleware"
)

const (
	msgInvalidBody     = "Invalid request body"
	msgProductNotFound = "Product not found"
	msgUserNotFound    = "User not found"
	msgUploadFailed    = "Failed to upload image"
)

// responder maps service errors to HTTP responses in one place.
type responder struct {
	logger  *zap.Logger
	devMode bool
}

// fail writes the response for err. Unexpected errors become a 500 with
// fallback as the message; their detail is only exposed in development.
func (r responder) fail(c *gin.Context, err error, fallback string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgProductNotFound})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgUserNotFound})
	case domain.IsUpstream(err):
		r.internal(c, err, msgUploadFailed)
	default:
		r.internal(c, err, fallback)
	}
}

func (r responder) internal(c *gin.Context, err error, msg string) {
	r.logger.Error(msg,
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	_ = c.Error(err)

	body := gin.H{"error": msg}
	if r.devMode {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}
