package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/media"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/service"
	"github.com/cloud-wave-best-zizon/stock-tracker/pkg/middleware"
)

type ProductHandler struct {
	responder
	productService *service.ProductService
	stager         *media.Stager
}

func NewProductHandler(productService *service.ProductService, stager *media.Stager, logger *zap.Logger, devMode bool) *ProductHandler {
	return &ProductHandler{
		responder:      responder{logger: logger, devMode: devMode},
		productService: productService,
		stager:         stager,
	}
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, domain.NewValidationError("Invalid query parameters"), "")
		return
	}

	page, err := h.productService.List(c.Request.Context(), q.filter())
	if err != nil {
		h.fail(c, err, "Failed to fetch products")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to fetch product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	fields, cleanup, err := productFields(c, h.stager)
	defer cleanup()
	if err != nil {
		h.fail(c, err, "Failed to create product")
		return
	}

	product, err := h.productService.Create(c.Request.Context(), domain.CreateProductInput{
		ProductFields: fields,
		UserID:        middleware.CurrentUserID(c),
	})
	if err != nil {
		h.fail(c, err, "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	fields, cleanup, err := productFields(c, h.stager)
	defer cleanup()
	if err != nil {
		h.fail(c, err, "Failed to update product")
		return
	}

	product, err := h.productService.Update(c.Request.Context(), c.Param("id"), domain.UpdateProductInput{ProductFields: fields})
	if err != nil {
		h.fail(c, err, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
