package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Propagation states of a delivery towards the products service.
const (
	PropagationPending = "pending"
	PropagationApplied = "applied"
	PropagationFailed  = "failed"
)

// Delivery records a supplier shipment for a single product. Its ID doubles as
// the idempotency key for the stock/price mutation on the products side, so a
// re-sent or re-driven delivery is never double-applied.
//
// Only the propagation worker mutates PropagationStatus/Attempts/LastError/
// NextRetryAt after creation.
type Delivery struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SupplierID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null;index"`
	QuantityDelta     int       `gorm:"not null"`
	UnitCost          *decimal.Decimal `gorm:"type:decimal(10,2)"` // set => also a price change
	InvoiceNumber     *string
	Notes             *string
	DeliveredAt       time.Time `gorm:"not null"`
	PropagationStatus string    `gorm:"not null;default:'pending';index"`
	Attempts          int       `gorm:"not null;default:0"`
	LastError         *string
	NextRetryAt       *time.Time `gorm:"index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Delivery) TableName() string { return "deliveries" }
