package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is a node in the category forest. Path is the materialized path:
// the "/"-joined ids of all ancestors plus the category itself, root first.
// Level == number of path segments. Hierarchy reads are O(depth) on Path,
// never O(tree size).
type Category struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `gorm:"index;not null"`
	Slug         string    `gorm:"uniqueIndex;not null"`
	Description  *string
	ParentID     *uuid.UUID `gorm:"type:uuid;index"`
	Path         string     `gorm:"index;not null"`
	Level        int        `gorm:"not null;default:1"`
	DisplayOrder int        `gorm:"not null;default:0"`
	Active       bool       `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Attributes []CategoryAttribute `gorm:"foreignKey:CategoryID"`
}

func (Category) TableName() string { return "categories" }

// PathIDs returns the ancestor chain (including the category itself),
// root first. An empty Path yields nil.
func (c Category) PathIDs() []uuid.UUID {
	if c.Path == "" {
		return nil
	}
	parts := strings.Split(c.Path, "/")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(p)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// CategoryAttribute is one ordered key/value pair attached to a category.
// Attribute resolution walks the materialized path; a child's value for a key
// overrides any ancestor's.
type CategoryAttribute struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;index"`
	Key        string    `gorm:"not null"`
	Value      string    `gorm:"not null"`
	Position   int       `gorm:"not null;default:0"`
}

func (CategoryAttribute) TableName() string { return "category_attributes" }
