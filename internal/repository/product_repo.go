package repository

import (
	"context"

	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductRepository defines the data access contract for products, the
// idempotency ledger, and price history.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error)

	// UpdateVersioned persists p only when the stored version still equals
	// expectedVersion, bumping the version by one. Returns false on a version
	// race — nothing is written in that case.
	UpdateVersioned(ctx context.Context, p *model.Product, expectedVersion int64) (bool, error)

	// AdjustStock applies a stock delta guarded against underflow in a single
	// conditional statement (also bumps version). Returns false when the
	// delta would drive stock negative; stock is left unchanged.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (bool, error)

	// SetPrice updates the price and bumps the version unconditionally
	// (supplier-driven price changes do not carry a caller version).
	SetPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error

	// Idempotency ledger. RecordApplied returns gorm.ErrDuplicatedKey when
	// the delivery key was already reserved by an earlier call.
	FindApplied(ctx context.Context, deliveryKey string) (*model.AppliedDelivery, error)
	RecordApplied(ctx context.Context, a *model.AppliedDelivery) error
	UpdateApplied(ctx context.Context, a *model.AppliedDelivery) error
	DeleteApplied(ctx context.Context, id uuid.UUID) error

	CreatePriceHistory(ctx context.Context, h *model.PriceHistory) error
	ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]model.PriceHistory, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&p).Error
	return &p, err
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{})

	// Active filter: "false" = inactive, "all" = everything, default = active
	switch filter.Active {
	case "false":
		q = q.Where("active = false")
	case "all":
		// no filter
	default:
		q = q.Where("active = true")
	}

	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.SupplierID != "" {
		q = q.Where("supplier_id = ?", filter.SupplierID)
	}
	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("name ASC").Limit(filter.Limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *productRepo) UpdateVersioned(ctx context.Context, p *model.Product, expectedVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND version = ?", p.ID, expectedVersion).
		Updates(map[string]interface{}{
			"name":        p.Name,
			"description": p.Description,
			"price":       p.Price,
			"category_id": p.CategoryID,
			"supplier_id": p.SupplierID,
			"active":      p.Active,
			"version":     gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_qty + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"stock_qty": gorm.Expr("stock_qty + ?", delta),
			"version":   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepo) SetPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"price":   price,
			"version": gorm.Expr("version + 1"),
		}).Error
}

func (r *productRepo) FindApplied(ctx context.Context, deliveryKey string) (*model.AppliedDelivery, error) {
	var a model.AppliedDelivery
	err := r.db.WithContext(ctx).Where("delivery_key = ?", deliveryKey).First(&a).Error
	return &a, err
}

func (r *productRepo) RecordApplied(ctx context.Context, a *model.AppliedDelivery) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *productRepo) UpdateApplied(ctx context.Context, a *model.AppliedDelivery) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *productRepo) DeleteApplied(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.AppliedDelivery{}, "id = ?", id).Error
}

func (r *productRepo) CreatePriceHistory(ctx context.Context, h *model.PriceHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *productRepo) ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]model.PriceHistory, error) {
	var history []model.PriceHistory
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at DESC").Find(&history).Error
	return history, err
}
