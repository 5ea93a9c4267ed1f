package model

import (
	"time"

	"github.com/google/uuid"
)

// Supplier holds a vendor's commercial record. Deactivating a supplier blocks
// new deliveries but never retroactively invalidates past ones.
type Supplier struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LegalName    string    `gorm:"not null"`
	TradingName  *string
	TaxID        string `gorm:"column:tax_id;uniqueIndex;not null"`
	Email        string `gorm:"not null"`
	Phone        *string
	PaymentTerms *string
	Active       bool `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Contacts   []SupplierContact `gorm:"foreignKey:SupplierID"`
	Deliveries []Delivery        `gorm:"foreignKey:SupplierID"`
}

func (Supplier) TableName() string { return "suppliers" }

// SupplierContact is one person at a supplier. At most one contact per
// supplier carries IsPrimary — setting a new primary demotes the old one.
type SupplierContact struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"not null"`
	Position   *string
	Email      string `gorm:"not null"`
	Phone      *string
	IsPrimary  bool `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

func (SupplierContact) TableName() string { return "supplier_contacts" }
