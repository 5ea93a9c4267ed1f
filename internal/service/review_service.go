package service

import (
	"context"
	"errors"

	"github.com/ndevops25/e-commerce-microservices/internal/cache"
	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/model"
	"github.com/ndevops25/e-commerce-microservices/internal/peer"
	"github.com/ndevops25/e-commerce-microservices/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductVerifier confirms a product exists in the catalog before a review is
// accepted for it. Implemented by the peer client; the same call backs the
// display cache.
type ProductVerifier interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*peer.ProductDetail, error)
}

// ReviewService defines the review lifecycle: submissions land pending,
// moderation moves them to approved or rejected, and only approvals feed the
// per-product rating summary.
type ReviewService interface {
	Submit(ctx context.Context, req dto.SubmitReviewRequest) (dto.ReviewResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.ReviewResponse, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, status string) ([]dto.ReviewResponse, error)
	ListPending(ctx context.Context) ([]dto.ReviewResponse, error)
	Approve(ctx context.Context, id uuid.UUID) (dto.ReviewResponse, error)
	Reject(ctx context.Context, id uuid.UUID) (dto.ReviewResponse, error)
	GetSummary(ctx context.Context, productID uuid.UUID) (dto.ReviewSummaryResponse, error)
}

type reviewService struct {
	repo     repository.ReviewRepository
	verifier ProductVerifier
	products *cache.ProductCache
}

func NewReviewService(repo repository.ReviewRepository, verifier ProductVerifier, products *cache.ProductCache) ReviewService {
	return &reviewService{repo: repo, verifier: verifier, products: products}
}

func (s *reviewService) mapReview(ctx context.Context, rev model.Review) dto.ReviewResponse {
	resp := dto.ReviewResponse{
		ID:        rev.ID,
		ProductID: rev.ProductID,
		UserID:    rev.UserID,
		Title:     rev.Title,
		Comment:   rev.Comment,
		Rating:    rev.Rating,
		Status:    rev.Status,
		CreatedAt: rev.CreatedAt,
	}
	if s.products != nil {
		if detail, ok := s.products.Get(ctx, rev.ProductID); ok {
			resp.Product = &dto.ReviewProductInfo{Name: detail.Name, Price: detail.Price}
		}
	}
	return resp
}

// Submit validates the product reference against the catalog and stores the
// review as pending. When the products service cannot give an authoritative
// answer the submission is rejected, never accepted unverified.
func (s *reviewService) Submit(ctx context.Context, req dto.SubmitReviewRequest) (dto.ReviewResponse, error) {
	if _, err := s.verifier.GetProduct(ctx, req.ProductID); err != nil {
		var sem *peer.SemanticError
		if errors.As(err, &sem) && sem.IsNotFound() {
			return dto.ReviewResponse{}, ErrReferenceNotFound
		}
		return dto.ReviewResponse{}, err
	}

	rev := &model.Review{
		ID:        uuid.New(),
		ProductID: req.ProductID,
		UserID:    req.UserID,
		Title:     req.Title,
		Comment:   req.Comment,
		Rating:    req.Rating,
		Status:    model.ReviewPending,
	}
	if err := s.repo.Create(ctx, rev); err != nil {
		return dto.ReviewResponse{}, err
	}
	return s.mapReview(ctx, *rev), nil
}

func (s *reviewService) Get(ctx context.Context, id uuid.UUID) (dto.ReviewResponse, error) {
	rev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrNotFound
		}
		return dto.ReviewResponse{}, err
	}
	return s.mapReview(ctx, *rev), nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID uuid.UUID, status string) ([]dto.ReviewResponse, error) {
	if status == "" {
		status = model.ReviewApproved
	}
	reviews, err := s.repo.ListByProduct(ctx, productID, status)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ReviewResponse, 0, len(reviews))
	for _, rev := range reviews {
		result = append(result, s.mapReview(ctx, rev))
	}
	return result, nil
}

func (s *reviewService) ListPending(ctx context.Context) ([]dto.ReviewResponse, error) {
	reviews, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ReviewResponse, 0, len(reviews))
	for _, rev := range reviews {
		result = append(result, s.mapReview(ctx, rev))
	}
	return result, nil
}

// Approve moves a pending review to approved and folds its rating into the
// product summary. The transition is guarded, so a repeated approval is a
// no-op and the rating counts exactly once; the status flip and the summary
// update commit together, so a failed approval leaves the review pending and
// retryable. Approving a rejected review is a conflict: rejected is terminal.
func (s *reviewService) Approve(ctx context.Context, id uuid.UUID) (dto.ReviewResponse, error) {
	rev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrNotFound
		}
		return dto.ReviewResponse{}, err
	}

	switch rev.Status {
	case model.ReviewApproved:
		return s.mapReview(ctx, *rev), nil
	case model.ReviewRejected:
		return dto.ReviewResponse{}, ErrInvalidTransition
	}

	ok, err := s.repo.ApproveAndRate(ctx, id, rev.ProductID, rev.Rating)
	if err != nil {
		return dto.ReviewResponse{}, err
	}
	if !ok {
		// Raced: someone else moderated first. Report the current state.
		return s.Get(ctx, id)
	}

	rev.Status = model.ReviewApproved
	return s.mapReview(ctx, *rev), nil
}

// Reject moves a pending review to rejected. The summary is untouched since
// only approvals ever counted. Rejecting an approved review is a conflict.
func (s *reviewService) Reject(ctx context.Context, id uuid.UUID) (dto.ReviewResponse, error) {
	rev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrNotFound
		}
		return dto.ReviewResponse{}, err
	}

	switch rev.Status {
	case model.ReviewRejected:
		return s.mapReview(ctx, *rev), nil
	case model.ReviewApproved:
		return dto.ReviewResponse{}, ErrInvalidTransition
	}

	ok, err := s.repo.TransitionStatus(ctx, id, model.ReviewPending, model.ReviewRejected)
	if err != nil {
		return dto.ReviewResponse{}, err
	}
	if !ok {
		return s.Get(ctx, id)
	}

	rev.Status = model.ReviewRejected
	return s.mapReview(ctx, *rev), nil
}

func (s *reviewService) GetSummary(ctx context.Context, productID uuid.UUID) (dto.ReviewSummaryResponse, error) {
	sum, err := s.repo.GetSummary(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewSummaryResponse{}, ErrNotFound
		}
		return dto.ReviewSummaryResponse{}, err
	}
	return dto.ReviewSummaryResponse{
		ProductID:     sum.ProductID,
		TotalReviews:  sum.TotalReviews,
		AverageRating: sum.AverageRating,
		UpdatedAt:     sum.UpdatedAt,
	}, nil
}
