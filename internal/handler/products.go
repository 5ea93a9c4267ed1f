package handler

import (
	"net/http"

	"github.com/ndevops25/e-commerce-microservices/internal/apierror"
	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// Create POST /products
func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List GET /products
func (h *ProductsHandler) List(c *gin.Context) {
	var filter dto.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListByCategory GET /products/category/:category_id
func (h *ProductsHandler) ListByCategory(c *gin.Context) {
	id, ok := parseID(c, "category_id")
	if !ok {
		return
	}
	var filter dto.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return
	}
	filter.CategoryID = id.String()
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListBySupplier GET /products/supplier/:supplier_id
func (h *ProductsHandler) ListBySupplier(c *gin.Context) {
	id, ok := parseID(c, "supplier_id")
	if !ok {
		return
	}
	var filter dto.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return
	}
	filter.SupplierID = id.String()
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get GET /products/:id — also accepts a SKU in place of the id.
func (h *ProductsHandler) Get(c *gin.Context) {
	raw := c.Param("id")
	var (
		resp dto.ProductResponse
		err  error
	)
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		resp, err = h.svc.Get(c.Request.Context(), id)
	} else {
		resp, err = h.svc.GetBySKU(c.Request.Context(), raw)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update PUT /products/:id — optimistic concurrency via expected_version.
func (h *ProductsHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// deliveryKey reconciles the body's delivery_id with the Idempotency-Key
// header. Either alone works; when both are present they must agree.
func deliveryKey(c *gin.Context, bodyID string) (string, bool) {
	header := c.GetHeader("Idempotency-Key")
	switch {
	case header == "" && bodyID == "":
		c.JSON(http.StatusBadRequest, apierror.New("delivery_id or Idempotency-Key header is required"))
		return "", false
	case header != "" && bodyID != "" && header != bodyID:
		c.JSON(http.StatusBadRequest, apierror.New("delivery_id and Idempotency-Key disagree"))
		return "", false
	case bodyID != "":
		return bodyID, true
	default:
		return header, true
	}
}

// ApplyStockDelta PATCH /products/:id/stock
// Idempotent per delivery key: the second application of the same key
// returns the recorded outcome with already_applied=true.
func (h *ProductsHandler) ApplyStockDelta(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.StockDeltaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	key, ok := deliveryKey(c, req.DeliveryID)
	if !ok {
		return
	}
	resp, err := h.svc.ApplyStockDelta(c.Request.Context(), id, req.Delta, key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApplyPriceChange PATCH /products/:id/price
func (h *ProductsHandler) ApplyPriceChange(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.PriceChangeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	key, ok := deliveryKey(c, req.DeliveryID)
	if !ok {
		return
	}
	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}
	resp, err := h.svc.ApplyPriceChange(c.Request.Context(), id, req.NewPrice, key, reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PriceHistory GET /products/:id/price-history
func (h *ProductsHandler) PriceHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.PriceHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"price_history": resp})
}
