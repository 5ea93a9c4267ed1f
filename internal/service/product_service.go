package service

import (
	"context"
	"errors"

	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/model"
	"github.com/ndevops25/e-commerce-microservices/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReferenceValidator answers whether an external category/supplier reference
// exists (and is active) right now. Implemented by the peer client; the write
// is rejected — never accepted unverified — when no authoritative answer can
// be obtained.
type ReferenceValidator interface {
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)
	SupplierActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// ProductService defines business operations for the product catalog.
type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (dto.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.ProductResponse, error)
	GetBySKU(ctx context.Context, sku string) (dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (dto.ProductListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (dto.ProductResponse, error)
	ApplyStockDelta(ctx context.Context, id uuid.UUID, delta int, deliveryID string) (dto.ApplyResult, error)
	ApplyPriceChange(ctx context.Context, id uuid.UUID, newPrice decimal.Decimal, deliveryID string, reason string) (dto.ApplyResult, error)
	PriceHistory(ctx context.Context, id uuid.UUID) ([]dto.PriceHistoryResponse, error)
}

type productService struct {
	repo repository.ProductRepository
	refs ReferenceValidator
}

func NewProductService(repo repository.ProductRepository, refs ReferenceValidator) ProductService {
	return &productService{repo: repo, refs: refs}
}

func mapProduct(p model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		StockQty:    p.StockQty,
		CategoryID:  p.CategoryID,
		SupplierID:  p.SupplierID,
		Version:     p.Version,
		Active:      p.Active,
	}
}

// validateRefs checks both external references through the peer client.
// Any error from the validator (including ErrUpstreamUnavailable) propagates
// unchanged so the caller's write is rejected with the right kind.
func (s *productService) validateRefs(ctx context.Context, categoryID, supplierID *uuid.UUID) error {
	if categoryID != nil {
		ok, err := s.refs.CategoryExists(ctx, *categoryID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrReferenceNotFound
		}
	}
	if supplierID != nil {
		ok, err := s.refs.SupplierActive(ctx, *supplierID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrReferenceNotFound
		}
	}
	return nil
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (dto.ProductResponse, error) {
	if req.Price.IsNegative() {
		return dto.ProductResponse{}, errors.New("price must not be negative")
	}

	if err := s.validateRefs(ctx, &req.CategoryID, &req.SupplierID); err != nil {
		return dto.ProductResponse{}, err
	}

	p := &model.Product{
		ID:          uuid.New(),
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		StockQty:    req.StockQty,
		CategoryID:  req.CategoryID,
		SupplierID:  req.SupplierID,
		Version:     1,
		Active:      true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.ProductResponse{}, ErrAlreadyExists
		}
		return dto.ProductResponse{}, err
	}

	_ = s.repo.CreatePriceHistory(ctx, &model.PriceHistory{
		ProductID:     p.ID,
		PreviousPrice: decimal.Zero,
		NewPrice:      p.Price,
		Reason:        "initial price",
	})

	return mapProduct(*p), nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProductResponse{}, ErrNotFound
		}
		return dto.ProductResponse{}, err
	}
	return mapProduct(*p), nil
}

func (s *productService) GetBySKU(ctx context.Context, sku string) (dto.ProductResponse, error) {
	p, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProductResponse{}, ErrNotFound
		}
		return dto.ProductResponse{}, err
	}
	return mapProduct(*p), nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (dto.ProductListResponse, error) {
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ProductListResponse{}, err
	}
	resp := dto.ProductListResponse{
		Products: make([]dto.ProductResponse, 0, len(products)),
		Total:    total,
		Page:     filter.Page,
	}
	for _, p := range products {
		resp.Products = append(resp.Products, mapProduct(p))
	}
	return resp, nil
}

// Update applies field changes under optimistic concurrency. References are
// re-validated only when they change; a validation failure or a version race
// rejects the write with nothing applied.
func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProductResponse{}, ErrNotFound
		}
		return dto.ProductResponse{}, err
	}

	var newCategory, newSupplier *uuid.UUID
	if req.CategoryID != nil && *req.CategoryID != p.CategoryID {
		newCategory = req.CategoryID
	}
	if req.SupplierID != nil && *req.SupplierID != p.SupplierID {
		newSupplier = req.SupplierID
	}
	if err := s.validateRefs(ctx, newCategory, newSupplier); err != nil {
		return dto.ProductResponse{}, err
	}

	previousPrice := p.Price
	priceChanged := false

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Price != nil && !req.Price.Equal(p.Price) {
		if req.Price.IsNegative() {
			return dto.ProductResponse{}, errors.New("price must not be negative")
		}
		p.Price = *req.Price
		priceChanged = true
	}
	if newCategory != nil {
		p.CategoryID = *newCategory
	}
	if newSupplier != nil {
		p.SupplierID = *newSupplier
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	ok, err := s.repo.UpdateVersioned(ctx, p, req.ExpectedVersion)
	if err != nil {
		return dto.ProductResponse{}, err
	}
	if !ok {
		return dto.ProductResponse{}, ErrConflict
	}
	p.Version = req.ExpectedVersion + 1

	if priceChanged {
		_ = s.repo.CreatePriceHistory(ctx, &model.PriceHistory{
			ProductID:     p.ID,
			PreviousPrice: previousPrice,
			NewPrice:      p.Price,
			Reason:        "manual update",
		})
	}

	return mapProduct(*p), nil
}

// previouslyApplied builds the no-op answer for a duplicate delivery key.
func previouslyApplied(a *model.AppliedDelivery) dto.ApplyResult {
	return dto.ApplyResult{
		ProductID:      a.ProductID,
		StockQty:       a.ResultStock,
		Price:          a.ResultPrice,
		AlreadyApplied: true,
	}
}

// ApplyStockDelta mutates stock idempotently, keyed by deliveryID.
//
// The ledger key is reserved before the stock is touched; if the guarded
// adjustment then refuses (underflow), the reservation is rolled back. Under
// a duplicate — lost response, re-drive, concurrent worker — exactly one
// caller wins the reservation and every other caller gets the recorded
// result back as a no-op.
func (s *productService) ApplyStockDelta(ctx context.Context, id uuid.UUID, delta int, deliveryID string) (dto.ApplyResult, error) {
	if deliveryID == "" {
		return dto.ApplyResult{}, errors.New("delivery id is required")
	}

	if prior, err := s.repo.FindApplied(ctx, deliveryID); err == nil {
		return previouslyApplied(prior), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ApplyResult{}, err
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplyResult{}, ErrNotFound
		}
		return dto.ApplyResult{}, err
	}

	entry := &model.AppliedDelivery{
		ID:          uuid.New(),
		ProductID:   p.ID,
		DeliveryKey: deliveryID,
		ResultStock: p.StockQty + delta,
		ResultPrice: p.Price,
	}
	if err := s.repo.RecordApplied(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			prior, ferr := s.repo.FindApplied(ctx, deliveryID)
			if ferr != nil {
				return dto.ApplyResult{}, ferr
			}
			return previouslyApplied(prior), nil
		}
		return dto.ApplyResult{}, err
	}

	ok, err := s.repo.AdjustStock(ctx, p.ID, delta)
	if err != nil {
		_ = s.repo.DeleteApplied(ctx, entry.ID)
		return dto.ApplyResult{}, err
	}
	if !ok {
		// Guarded update refused: the delta would underflow. Release the
		// ledger reservation so a later corrected delivery can reuse nothing
		// of this one.
		_ = s.repo.DeleteApplied(ctx, entry.ID)
		return dto.ApplyResult{}, ErrInsufficientStock
	}

	updated, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		return dto.ApplyResult{}, err
	}
	entry.ResultStock = updated.StockQty
	entry.ResultPrice = updated.Price
	_ = s.repo.UpdateApplied(ctx, entry)

	return dto.ApplyResult{
		ProductID: updated.ID,
		StockQty:  updated.StockQty,
		Price:     updated.Price,
		Version:   updated.Version,
	}, nil
}

// ApplyPriceChange mutates the price idempotently. The ledger key is suffixed
// so a delivery that carries both a quantity and a unit cost consumes two
// distinct keys.
func (s *productService) ApplyPriceChange(ctx context.Context, id uuid.UUID, newPrice decimal.Decimal, deliveryID string, reason string) (dto.ApplyResult, error) {
	if deliveryID == "" {
		return dto.ApplyResult{}, errors.New("delivery id is required")
	}
	if newPrice.IsNegative() {
		return dto.ApplyResult{}, errors.New("price must not be negative")
	}
	key := deliveryID + ":price"

	if prior, err := s.repo.FindApplied(ctx, key); err == nil {
		return previouslyApplied(prior), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ApplyResult{}, err
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplyResult{}, ErrNotFound
		}
		return dto.ApplyResult{}, err
	}

	entry := &model.AppliedDelivery{
		ID:          uuid.New(),
		ProductID:   p.ID,
		DeliveryKey: key,
		ResultStock: p.StockQty,
		ResultPrice: newPrice,
	}
	if err := s.repo.RecordApplied(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			prior, ferr := s.repo.FindApplied(ctx, key)
			if ferr != nil {
				return dto.ApplyResult{}, ferr
			}
			return previouslyApplied(prior), nil
		}
		return dto.ApplyResult{}, err
	}

	if err := s.repo.SetPrice(ctx, p.ID, newPrice); err != nil {
		_ = s.repo.DeleteApplied(ctx, entry.ID)
		return dto.ApplyResult{}, err
	}

	if reason == "" {
		reason = "supplier delivery"
	}
	if !p.Price.Equal(newPrice) {
		_ = s.repo.CreatePriceHistory(ctx, &model.PriceHistory{
			ProductID:     p.ID,
			PreviousPrice: p.Price,
			NewPrice:      newPrice,
			Reason:        reason,
		})
	}

	updated, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		return dto.ApplyResult{}, err
	}
	entry.ResultStock = updated.StockQty
	entry.ResultPrice = updated.Price
	_ = s.repo.UpdateApplied(ctx, entry)

	return dto.ApplyResult{
		ProductID: updated.ID,
		StockQty:  updated.StockQty,
		Price:     updated.Price,
		Version:   updated.Version,
	}, nil
}

func (s *productService) PriceHistory(ctx context.Context, id uuid.UUID) ([]dto.PriceHistoryResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	history, err := s.repo.ListPriceHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	result := make([]dto.PriceHistoryResponse, 0, len(history))
	for _, h := range history {
		result = append(result, dto.PriceHistoryResponse{
			PreviousPrice: h.PreviousPrice,
			NewPrice:      h.NewPrice,
			Reason:        h.Reason,
			ChangedAt:     h.CreatedAt,
		})
	}
	return result, nil
}
