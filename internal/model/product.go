package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the authoritative price/stock record. CategoryID and SupplierID
// are advisory references into other services — validated at write time
// through the peer client, never assumed valid indefinitely.
//
// Version is a monotonic counter for optimistic concurrency: every successful
// update increments it by exactly one, and a caller-supplied stale version is
// rejected without applying anything.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockQty    int             `gorm:"not null;default:0"`
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Version     int64           `gorm:"not null;default:1"`
	Active      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Product) TableName() string { return "products" }

// AppliedDelivery is the per-product idempotency ledger. One row per delivery
// key ever applied; the unique index on DeliveryKey is what makes a duplicate
// stock/price call a no-op that returns the previously applied result.
type AppliedDelivery struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	DeliveryKey string          `gorm:"uniqueIndex;not null"`
	ResultStock int             `gorm:"not null"`
	ResultPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	AppliedAt   time.Time
}

func (AppliedDelivery) TableName() string { return "applied_deliveries" }

// PriceHistory rows are immutable — never updated or deleted.
type PriceHistory struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	PreviousPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	NewPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Reason        string          `gorm:"not null"`
	CreatedAt     time.Time
}

func (PriceHistory) TableName() string { return "price_history" }
