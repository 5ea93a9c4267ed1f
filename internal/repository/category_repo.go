package repository

import (
	"context"

	"github.com/ndevops25/e-commerce-microservices/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryRepository defines the data access contract for the category forest.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)

	// ListSubtree returns every category whose materialized path starts with
	// pathPrefix (the root of the subtree included).
	ListSubtree(ctx context.Context, pathPrefix string) ([]model.Category, error)

	// ListAttributes returns the attribute rows for the given categories,
	// ordered by position within each category.
	ListAttributes(ctx context.Context, categoryIDs []uuid.UUID) ([]model.CategoryAttribute, error)

	Update(ctx context.Context, c *model.Category) error
	ReplaceAttributes(ctx context.Context, categoryID uuid.UUID, attrs []model.CategoryAttribute) error

	// RebaseSubtree rewrites the path prefix and shifts the level of every
	// category under oldPrefix in one statement. Used by SetParent.
	RebaseSubtree(ctx context.Context, oldPrefix, newPrefix string, levelDelta int) error

	Deactivate(ctx context.Context, id uuid.UUID) error
}

type categoryRepo struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository { return &categoryRepo{db: db} }

func (r *categoryRepo) Create(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).
		Preload("Attributes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&c, "id = ?", id).Error
	return &c, err
}

func (r *categoryRepo) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).
		Preload("Attributes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("slug = ?", slug).First(&c).Error
	return &c, err
}

func (r *categoryRepo) List(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	err := r.db.WithContext(ctx).Order("level ASC, display_order ASC, name ASC").Find(&cats).Error
	return cats, err
}

func (r *categoryRepo) ListSubtree(ctx context.Context, pathPrefix string) ([]model.Category, error) {
	var cats []model.Category
	err := r.db.WithContext(ctx).
		Where("path = ? OR path LIKE ?", pathPrefix, pathPrefix+"/%").
		Order("level ASC, display_order ASC").
		Find(&cats).Error
	return cats, err
}

func (r *categoryRepo) ListAttributes(ctx context.Context, categoryIDs []uuid.UUID) ([]model.CategoryAttribute, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	var attrs []model.CategoryAttribute
	err := r.db.WithContext(ctx).
		Where("category_id IN ?", categoryIDs).
		Order("position ASC").
		Find(&attrs).Error
	return attrs, err
}

func (r *categoryRepo) Update(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Omit("Attributes").Save(c).Error
}

func (r *categoryRepo) ReplaceAttributes(ctx context.Context, categoryID uuid.UUID, attrs []model.CategoryAttribute) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", categoryID).Delete(&model.CategoryAttribute{}).Error; err != nil {
			return err
		}
		if len(attrs) == 0 {
			return nil
		}
		return tx.Create(&attrs).Error
	})
}

func (r *categoryRepo) RebaseSubtree(ctx context.Context, oldPrefix, newPrefix string, levelDelta int) error {
	return r.db.WithContext(ctx).Model(&model.Category{}).
		Where("path = ? OR path LIKE ?", oldPrefix, oldPrefix+"/%").
		Updates(map[string]interface{}{
			"path":  gorm.Expr("? || substr(path, ?)", newPrefix, len(oldPrefix)+1),
			"level": gorm.Expr("level + ?", levelDelta),
		}).Error
}

func (r *categoryRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).Update("active", false).Error
}
