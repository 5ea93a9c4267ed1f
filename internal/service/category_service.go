package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/model"
	"github.com/ndevops25/e-commerce-microservices/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryService defines business operations for the category directory.
type CategoryService interface {
	Create(ctx context.Context, req dto.CreateCategoryRequest) (dto.CategoryResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.CategoryResponse, error)
	GetBySlug(ctx context.Context, slug string) (dto.CategoryResponse, error)
	List(ctx context.Context) ([]dto.CategoryResponse, error)
	Hierarchy(ctx context.Context) ([]dto.CategoryTreeNode, error)
	GetSubtree(ctx context.Context, id uuid.UUID) ([]dto.CategoryResponse, error)
	ResolveAttributes(ctx context.Context, id uuid.UUID) ([]dto.AttributeDTO, error)
	SetParent(ctx context.Context, id uuid.UUID, newParentID *uuid.UUID) (dto.CategoryResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (dto.CategoryResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func mapCategory(c model.Category) dto.CategoryResponse {
	attrs := make([]dto.AttributeDTO, 0, len(c.Attributes))
	for _, a := range c.Attributes {
		attrs = append(attrs, dto.AttributeDTO{Key: a.Key, Value: a.Value})
	}
	return dto.CategoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  c.Description,
		ParentID:     c.ParentID,
		Level:        c.Level,
		DisplayOrder: c.DisplayOrder,
		Active:       c.Active,
		Attributes:   attrs,
	}
}

func (s *categoryService) Create(ctx context.Context, req dto.CreateCategoryRequest) (dto.CategoryResponse, error) {
	existing, err := s.repo.FindBySlug(ctx, req.Slug)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CategoryResponse{}, err
	}
	if err == nil && existing != nil {
		return dto.CategoryResponse{}, ErrAlreadyExists
	}

	// The id participates in the materialized path, so it is assigned here
	// rather than by the database default.
	id := uuid.New()
	path := id.String()
	level := 1

	if req.ParentID != nil {
		parent, err := s.repo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.CategoryResponse{}, ErrReferenceNotFound
			}
			return dto.CategoryResponse{}, err
		}
		path = parent.Path + "/" + id.String()
		level = parent.Level + 1
	}

	c := &model.Category{
		ID:           id,
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		ParentID:     req.ParentID,
		Path:         path,
		Level:        level,
		DisplayOrder: req.DisplayOrder,
		Active:       true,
	}
	for i, a := range req.Attributes {
		c.Attributes = append(c.Attributes, model.CategoryAttribute{
			CategoryID: id,
			Key:        a.Key,
			Value:      a.Value,
			Position:   i,
		})
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return dto.CategoryResponse{}, err
	}
	return mapCategory(*c), nil
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (dto.CategoryResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CategoryResponse{}, ErrNotFound
		}
		return dto.CategoryResponse{}, err
	}
	return mapCategory(*c), nil
}

func (s *categoryService) GetBySlug(ctx context.Context, slug string) (dto.CategoryResponse, error) {
	c, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CategoryResponse{}, ErrNotFound
		}
		return dto.CategoryResponse{}, err
	}
	return mapCategory(*c), nil
}

func (s *categoryService) List(ctx context.Context) ([]dto.CategoryResponse, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.CategoryResponse, 0, len(list))
	for _, c := range list {
		result = append(result, mapCategory(c))
	}
	return result, nil
}

// Hierarchy assembles the full forest from a single query.
func (s *categoryService) Hierarchy(ctx context.Context) ([]dto.CategoryTreeNode, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[uuid.UUID][]model.Category)
	var roots []model.Category
	for _, c := range list {
		if c.ParentID == nil {
			roots = append(roots, c)
		} else {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	var build func(c model.Category) dto.CategoryTreeNode
	build = func(c model.Category) dto.CategoryTreeNode {
		node := dto.CategoryTreeNode{
			ID:            c.ID,
			Name:          c.Name,
			Slug:          c.Slug,
			Subcategories: []dto.CategoryTreeNode{},
		}
		for _, child := range children[c.ID] {
			node.Subcategories = append(node.Subcategories, build(child))
		}
		return node
	}

	result := make([]dto.CategoryTreeNode, 0, len(roots))
	for _, r := range roots {
		result = append(result, build(r))
	}
	return result, nil
}

func (s *categoryService) GetSubtree(ctx context.Context, id uuid.UUID) ([]dto.CategoryResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	subtree, err := s.repo.ListSubtree(ctx, c.Path)
	if err != nil {
		return nil, err
	}
	result := make([]dto.CategoryResponse, 0, len(subtree))
	for _, sc := range subtree {
		result = append(result, mapCategory(sc))
	}
	return result, nil
}

// ResolveAttributes walks the materialized path root→leaf. A descendant's
// value for a key overrides the ancestor's in place, so the result keeps the
// position of the first (most ancestral) occurrence of each key.
func (s *categoryService) ResolveAttributes(ctx context.Context, id uuid.UUID) ([]dto.AttributeDTO, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	pathIDs := c.PathIDs()
	attrs, err := s.repo.ListAttributes(ctx, pathIDs)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[uuid.UUID][]model.CategoryAttribute)
	for _, a := range attrs {
		byCategory[a.CategoryID] = append(byCategory[a.CategoryID], a)
	}

	resolved := make([]dto.AttributeDTO, 0, len(attrs))
	index := make(map[string]int)
	for _, catID := range pathIDs {
		for _, a := range byCategory[catID] {
			if i, ok := index[a.Key]; ok {
				resolved[i].Value = a.Value
				continue
			}
			index[a.Key] = len(resolved)
			resolved = append(resolved, dto.AttributeDTO{Key: a.Key, Value: a.Value})
		}
	}
	return resolved, nil
}

func (s *categoryService) SetParent(ctx context.Context, id uuid.UUID, newParentID *uuid.UUID) (dto.CategoryResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CategoryResponse{}, ErrNotFound
		}
		return dto.CategoryResponse{}, err
	}

	newPath := c.ID.String()
	newLevel := 1

	if newParentID != nil {
		if *newParentID == id {
			return dto.CategoryResponse{}, ErrCycleDetected
		}
		parent, err := s.repo.FindByID(ctx, *newParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.CategoryResponse{}, ErrReferenceNotFound
			}
			return dto.CategoryResponse{}, err
		}
		// A parent inside our own subtree would close a cycle. The
		// materialized path makes this a prefix test, not a tree walk.
		if parent.Path == c.Path || strings.HasPrefix(parent.Path, c.Path+"/") {
			return dto.CategoryResponse{}, ErrCycleDetected
		}
		newPath = parent.Path + "/" + c.ID.String()
		newLevel = parent.Level + 1
	}

	if newPath != c.Path {
		if err := s.repo.RebaseSubtree(ctx, c.Path, newPath, newLevel-c.Level); err != nil {
			return dto.CategoryResponse{}, err
		}
	}

	c.ParentID = newParentID
	c.Path = newPath
	c.Level = newLevel
	if err := s.repo.Update(ctx, c); err != nil {
		return dto.CategoryResponse{}, err
	}
	return mapCategory(*c), nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (dto.CategoryResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CategoryResponse{}, ErrNotFound
		}
		return dto.CategoryResponse{}, err
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = req.Description
	}
	if req.DisplayOrder != nil {
		c.DisplayOrder = *req.DisplayOrder
	}
	if req.Active != nil {
		c.Active = *req.Active
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return dto.CategoryResponse{}, err
	}

	if req.Attributes != nil {
		attrs := make([]model.CategoryAttribute, 0, len(req.Attributes))
		for i, a := range req.Attributes {
			attrs = append(attrs, model.CategoryAttribute{
				CategoryID: c.ID,
				Key:        a.Key,
				Value:      a.Value,
				Position:   i,
			})
		}
		if err := s.repo.ReplaceAttributes(ctx, c.ID, attrs); err != nil {
			return dto.CategoryResponse{}, err
		}
		c.Attributes = attrs
	}

	return mapCategory(*c), nil
}

// Deactivate is soft only: products may still reference this category, so it
// is never hard-deleted.
func (s *categoryService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.repo.Deactivate(ctx, id)
}
