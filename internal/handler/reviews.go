package handler

import (
	"net/http"

	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/service"

	"github.com/gin-gonic/gin"
)

type ReviewsHandler struct{ svc service.ReviewService }

func NewReviewsHandler(svc service.ReviewService) *ReviewsHandler {
	return &ReviewsHandler{svc: svc}
}

// Submit POST /reviews — lands in pending until moderated.
func (h *ReviewsHandler) Submit(c *gin.Context) {
	var req dto.SubmitReviewRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get GET /reviews/:id
func (h *ReviewsHandler) Get(c *gin.Context) {
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

// ListByProduct GET /reviews/products/:id?status=approved|pending|rejected|all
// Defaults to approved, the only status the public listing shows.
func (h *ReviewsHandler) ListByProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	status := c.DefaultQuery("status", "")
	resp, err := h.svc.ListByProduct(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": resp})
}

// ListPending GET /reviews/pending — the moderation queue, oldest first.
func (h *ReviewsHandler) ListPending(c *gin.Context) {
	resp, err := h.svc.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": resp})
}

// Approve POST /reviews/:id/approve
func (h *ReviewsHandler) Approve(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reject POST /reviews/:id/reject
func (h *ReviewsHandler) Reject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Reject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Summary GET /reviews/products/:id/summary
func (h *ReviewsHandler) Summary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetSummary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
