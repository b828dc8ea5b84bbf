package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/service"
)

type AuthHandler struct {
	responder
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger, devMode bool) *AuthHandler {
	return &AuthHandler{
		responder:   responder{logger: logger, devMode: devMode},
		authService: authService,
	}
}

func (h *AuthHandler) Upsert(c *gin.Context) {
	var req domain.UpsertUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, domain.NewValidationError(msgInvalidBody), "")
		return
	}

	user, err := h.authService.Upsert(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to upsert user")
		return
	}
	c.JSON(http.StatusOK, user)
}
