package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	SKU         string          `json:"sku" validate:"required,max=50"`
	Name        string          `json:"name" validate:"required,max=255"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"min=0"`
	StockQty    int             `json:"stock_qty" validate:"min=0"`
	CategoryID  uuid.UUID       `json:"category_id" validate:"required"`
	SupplierID  uuid.UUID       `json:"supplier_id" validate:"required"`
}

// UpdateProductRequest carries the caller's expected version for optimistic
// concurrency. A stale version is rejected without applying anything.
type UpdateProductRequest struct {
	Name            *string          `json:"name" validate:"omitempty,max=255"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price" validate:"omitempty,min=0"`
	CategoryID      *uuid.UUID       `json:"category_id"`
	SupplierID      *uuid.UUID       `json:"supplier_id"`
	Active          *bool            `json:"active"`
	ExpectedVersion int64            `json:"expected_version" validate:"required,min=1"`
}

// StockDeltaRequest mutates stock idempotently. DeliveryID may come from the
// body or the Idempotency-Key header; the handler reconciles the two.
type StockDeltaRequest struct {
	Delta      int    `json:"delta" validate:"required"`
	DeliveryID string `json:"delivery_id"`
}

type PriceChangeRequest struct {
	NewPrice   decimal.Decimal `json:"new_price" validate:"min=0"`
	DeliveryID string          `json:"delivery_id"`
	Reason     *string         `json:"reason"`
}

type ProductFilter struct {
	Active     string `form:"active"`
	CategoryID string `form:"category_id"`
	SupplierID string `form:"supplier_id"`
	Name       string `form:"name"`
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=50"`
}

type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	StockQty    int             `json:"stock_qty"`
	CategoryID  uuid.UUID       `json:"category_id"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	Version     int64           `json:"version"`
	Active      bool            `json:"active"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
}

// ApplyResult reports the state after an idempotent stock/price mutation.
// AlreadyApplied is true when the delivery key had been applied before and
// this call changed nothing.
type ApplyResult struct {
	ProductID      uuid.UUID       `json:"product_id"`
	StockQty       int             `json:"stock_qty"`
	Price          decimal.Decimal `json:"price"`
	Version        int64           `json:"version"`
	AlreadyApplied bool            `json:"already_applied"`
}

type PriceHistoryResponse struct {
	PreviousPrice decimal.Decimal `json:"previous_price"`
	NewPrice      decimal.Decimal `json:"new_price"`
	Reason        string          `json:"reason"`
	ChangedAt     time.Time       `json:"changed_at"`
}
