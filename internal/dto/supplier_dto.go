package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateSupplierRequest struct {
	LegalName    string  `json:"legal_name" validate:"required,max=255"`
	TradingName  *string `json:"trading_name"`
	TaxID        string  `json:"tax_id" validate:"required,max=20"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        *string `json:"phone"`
	PaymentTerms *string `json:"payment_terms"`
}

type UpdateSupplierRequest struct {
	LegalName    *string `json:"legal_name" validate:"omitempty,max=255"`
	TradingName  *string `json:"trading_name"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	PaymentTerms *string `json:"payment_terms"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type SupplierResponse struct {
	ID           uuid.UUID `json:"id"`
	LegalName    string    `json:"legal_name"`
	TradingName  *string   `json:"trading_name,omitempty"`
	TaxID        string    `json:"tax_id"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	PaymentTerms *string   `json:"payment_terms,omitempty"`
	Active       bool      `json:"active"`
}

type CreateContactRequest struct {
	Name      string  `json:"name" validate:"required,max=100"`
	Position  *string `json:"position"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     *string `json:"phone"`
	IsPrimary bool    `json:"is_primary"`
}

type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Position  *string   `json:"position,omitempty"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	IsPrimary bool      `json:"is_primary"`
}

type RecordDeliveryRequest struct {
	ProductID     uuid.UUID        `json:"product_id" validate:"required"`
	QuantityDelta int              `json:"quantity_delta" validate:"required"`
	UnitCost      *decimal.Decimal `json:"unit_cost" validate:"omitempty,min=0"`
	InvoiceNumber *string          `json:"invoice_number"`
	Notes         *string          `json:"notes"`
	DeliveredAt   *time.Time       `json:"delivered_at"`
}

type DeliveryResponse struct {
	ID                uuid.UUID        `json:"id"`
	SupplierID        uuid.UUID        `json:"supplier_id"`
	ProductID         uuid.UUID        `json:"product_id"`
	QuantityDelta     int              `json:"quantity_delta"`
	UnitCost          *decimal.Decimal `json:"unit_cost,omitempty"`
	InvoiceNumber     *string          `json:"invoice_number,omitempty"`
	DeliveredAt       time.Time        `json:"delivered_at"`
	PropagationStatus string           `json:"propagation_status"`
	Attempts          int              `json:"attempts"`
	LastError         *string          `json:"last_error,omitempty"`
	NextRetryAt       *time.Time       `json:"next_retry_at,omitempty"`
}
