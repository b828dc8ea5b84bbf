package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/service"
)

type AnalyticsHandler struct {
	responder
	analyticsService *service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService, logger *zap.Logger, devMode bool) *AnalyticsHandler {
	return &AnalyticsHandler{
		responder:        responder{logger: logger, devMode: devMode},
		analyticsService: analyticsService,
	}
}

func (h *AnalyticsHandler) StockSummary(c *gin.Context) {
	summary, err := h.analyticsService.StockSummary(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to fetch stock summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AnalyticsHandler) StockByProduct(c *gin.Context) {
	items, err := h.analyticsService.StockByProduct(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to fetch stock analytics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
