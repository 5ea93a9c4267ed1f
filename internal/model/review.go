package model

import (
	"time"

	"github.com/google/uuid"
)

// Review moderation states. Approved and rejected are terminal.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Review references a product owned by the products service by id only.
type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"not null"`
	Comment   *string
	Rating    int    `gorm:"not null"` // 1..5
	Status    string `gorm:"not null;default:'pending';index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Review) TableName() string { return "reviews" }

// ReviewSummary is derived state, recomputed incrementally on each approval.
// It is never written through the API directly.
type ReviewSummary struct {
	ProductID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	TotalReviews  int64     `gorm:"not null;default:0"`
	AverageRating float64   `gorm:"not null;default:0"`
	UpdatedAt     time.Time
}

func (ReviewSummary) TableName() string { return "review_summaries" }
