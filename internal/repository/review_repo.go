package repository

import (
	"context"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewRepository defines the data access contract for reviews and the
// derived per-product summary.
type ReviewRepository interface {
	Create(ctx context.Context, rev *model.Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, status string) ([]model.Review, error)
	ListPending(ctx context.Context) ([]model.Review, error)

	// TransitionStatus moves a review from one status to another atomically.
	// Returns false when the review was not in `from` — the terminal-transition
	// guard: of two concurrent approvals exactly one wins.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)

	// ApproveAndRate moves a pending review to approved and folds its rating
	// into the product summary in one transaction: either both commit or the
	// review stays pending. Returns false when the review was not pending.
	ApproveAndRate(ctx context.Context, id, productID uuid.UUID, rating int) (bool, error)

	GetSummary(ctx context.Context, productID uuid.UUID) (*model.ReviewSummary, error)
}

type reviewRepo struct{ db *gorm.DB }

func NewReviewRepository(db *gorm.DB) ReviewRepository { return &reviewRepo{db: db} }

func (r *reviewRepo) Create(ctx context.Context, rev *model.Review) error {
	return r.db.WithContext(ctx).Create(rev).Error
}

func (r *reviewRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	var rev model.Review
	err := r.db.WithContext(ctx).First(&rev, "id = ?", id).Error
	return &rev, err
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID, status string) ([]model.Review, error) {
	q := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if status != "all" && status != "" {
		q = q.Where("status = ?", status)
	}
	var reviews []model.Review
	err := q.Order("created_at DESC").Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepo) ListPending(ctx context.Context) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).Where("status = ?", model.ReviewPending).Order("created_at ASC").Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *reviewRepo) ApproveAndRate(ctx context.Context, id, productID uuid.UUID, rating int) (bool, error) {
	approved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Review{}).
			Where("id = ? AND status = ?", id, model.ReviewPending).
			Update("status", model.ReviewApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		approved = true
		return applyRating(tx, productID, rating)
	})
	if err != nil {
		return false, err
	}
	return approved, nil
}

func (r *reviewRepo) GetSummary(ctx context.Context, productID uuid.UUID) (*model.ReviewSummary, error) {
	var s model.ReviewSummary
	err := r.db.WithContext(ctx).First(&s, "product_id = ?", productID).Error
	return &s, err
}

// applyRating folds one newly approved rating into the product summary
// incrementally (running average), creating the row if absent.
func applyRating(tx *gorm.DB, productID uuid.UUID, rating int) error {
	// Single upsert so the running average and count move together. Both
	// right-hand sides read the pre-update row, so the average uses the old
	// count, as the incremental formula requires.
	return tx.Exec(`
		INSERT INTO review_summaries (product_id, total_reviews, average_rating, updated_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT (product_id) DO UPDATE SET
			average_rating = review_summaries.average_rating
				+ (? - review_summaries.average_rating) / (review_summaries.total_reviews + 1),
			total_reviews = review_summaries.total_reviews + 1,
			updated_at = ?`,
		productID, float64(rating), time.Now().UTC(),
		float64(rating), time.Now().UTC(),
	).Error
}
