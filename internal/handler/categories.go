package handler

import (
	"net/http"

	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CategoriesHandler struct{ svc service.CategoryService }

func NewCategoriesHandler(svc service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{svc: svc}
}

// Create POST /categories
func (h *CategoriesHandler) Create(c *gin.Context) {
	var req dto.CreateCategoryRequest
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

// List GET /categories
func (h *CategoriesHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Hierarchy GET /categories/hierarchy
func (h *CategoriesHandler) Hierarchy(c *gin.Context) {
	tree, err := h.svc.Hierarchy(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hierarchy": tree})
}

// Get GET /categories/:id — also accepts a slug in place of the id.
func (h *CategoriesHandler) Get(c *gin.Context) {
	raw := c.Param("id")
	var (
		resp dto.CategoryResponse
		err  error
	)
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		resp, err = h.svc.Get(c.Request.Context(), id)
	} else {
		resp, err = h.svc.GetBySlug(c.Request.Context(), raw)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetBySlug GET /categories/slug/:slug
func (h *CategoriesHandler) GetBySlug(c *gin.Context) {
	resp, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Subtree GET /categories/:id/subtree
func (h *CategoriesHandler) Subtree(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetSubtree(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": resp})
}

// Attributes GET /categories/:id/attributes — effective set with inheritance.
func (h *CategoriesHandler) Attributes(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	attrs, err := h.svc.ResolveAttributes(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attributes": attrs})
}

// Update PUT /categories/:id
func (h *CategoriesHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCategoryRequest
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

// SetParent PATCH /categories/:id/parent
func (h *CategoriesHandler) SetParent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.SetParentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetParent(c.Request.Context(), id, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Deactivate DELETE /categories/:id — soft delete, subtree stays in place.
func (h *CategoriesHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
