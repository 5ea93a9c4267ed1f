package handler

import (
	"net/http"

	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/service"

	"github.com/gin-gonic/gin"
)

type SuppliersHandler struct{ svc service.SupplierService }

func NewSuppliersHandler(svc service.SupplierService) *SuppliersHandler {
	return &SuppliersHandler{svc: svc}
}

// Create POST /suppliers
func (h *SuppliersHandler) Create(c *gin.Context) {
	var req dto.CreateSupplierRequest
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

// List GET /suppliers
func (h *SuppliersHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suppliers": resp})
}

// Get GET /suppliers/:id
func (h *SuppliersHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update PUT /suppliers/:id
func (h *SuppliersHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateSupplierRequest
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

// SetActive PATCH /suppliers/:id/active
func (h *SuppliersHandler) SetActive(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddContact POST /suppliers/:id/contacts
func (h *SuppliersHandler) AddContact(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateContactRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddContact(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListContacts GET /suppliers/:id/contacts
func (h *SuppliersHandler) ListContacts(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListContacts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": resp})
}

// RecordDelivery POST /suppliers/:id/deliveries
// Accepted (202): the stock/price propagation happens asynchronously.
func (h *SuppliersHandler) RecordDelivery(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.RecordDeliveryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordDelivery(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// ListDeliveries GET /suppliers/:id/deliveries
func (h *SuppliersHandler) ListDeliveries(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListDeliveries(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": resp})
}

// GetDelivery GET /suppliers/:id/deliveries/:delivery_id
func (h *SuppliersHandler) GetDelivery(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	deliveryID, ok := parseID(c, "delivery_id")
	if !ok {
		return
	}
	resp, err := h.svc.GetDelivery(c.Request.Context(), id, deliveryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RetryDelivery POST /suppliers/:id/deliveries/:delivery_id/retry
// Manual re-drive for a failed or stuck delivery. Applying twice is safe:
// the delivery id keys the idempotency ledger on the products side.
func (h *SuppliersHandler) RetryDelivery(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	deliveryID, ok := parseID(c, "delivery_id")
	if !ok {
		return
	}
	resp, err := h.svc.RetryDelivery(c.Request.Context(), id, deliveryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}
