package dto

import "github.com/google/uuid"

type AttributeDTO struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

type CreateCategoryRequest struct {
	Name         string         `json:"name" validate:"required,max=100"`
	Slug         string         `json:"slug" validate:"required,max=100"`
	Description  *string        `json:"description"`
	ParentID     *uuid.UUID     `json:"parent_id"`
	DisplayOrder int            `json:"display_order"`
	Attributes   []AttributeDTO `json:"attributes" validate:"dive"`
}

type UpdateCategoryRequest struct {
	Name         *string        `json:"name" validate:"omitempty,max=100"`
	Description  *string        `json:"description"`
	DisplayOrder *int           `json:"display_order"`
	Active       *bool          `json:"active"`
	Attributes   []AttributeDTO `json:"attributes" validate:"dive"`
}

type SetParentRequest struct {
	// Null parent_id turns the category into a root.
	ParentID *uuid.UUID `json:"parent_id"`
}

type CategoryResponse struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Description  *string        `json:"description,omitempty"`
	ParentID     *uuid.UUID     `json:"parent_id,omitempty"`
	Level        int            `json:"level"`
	DisplayOrder int            `json:"display_order"`
	Active       bool           `json:"active"`
	Attributes   []AttributeDTO `json:"attributes,omitempty"`
}

// CategoryTreeNode is one node of the full-hierarchy response.
type CategoryTreeNode struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	Slug          string             `json:"slug"`
	Subcategories []CategoryTreeNode `json:"subcategories"`
}
