package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubmitReviewRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	Title     string    `json:"title" validate:"required,max=100"`
	Comment   *string   `json:"comment"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
}

type ReviewResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Comment   *string   `json:"comment,omitempty"`
	Rating    int       `json:"rating"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	// Display enrichment from the products service; nil when the product
	// detail was unavailable and nothing was cached.
	Product *ReviewProductInfo `json:"product,omitempty"`
}

// ReviewProductInfo is the slice of product data the review read path shows.
// Served from the bounded TTL cache, possibly stale during a catalog outage.
type ReviewProductInfo struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type ReviewSummaryResponse struct {
	ProductID     uuid.UUID `json:"product_id"`
	TotalReviews  int64     `json:"total_reviews"`
	AverageRating float64   `json:"average_rating"`
	UpdatedAt     time.Time `json:"updated_at"`
}
