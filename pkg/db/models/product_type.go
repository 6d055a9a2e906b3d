package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/geoinstrumentos/catalog-backend/pkg/enums"
)

// ProductType groups products on the storefront ("Total Stations", "Levels").
// Rows are never physically deleted.
type ProductType struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	Icon      *string   `gorm:"column:icon"`
	Color     *string   `gorm:"column:color"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductType) TableName() string { return "product_types" }

func (t *ProductType) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Status exposes the stored flag as a lifecycle state.
func (t ProductType) Status() enums.ProductTypeStatus {
	return enums.ProductTypeStatusFromActive(t.IsActive)
}

// ActiveScope restricts a query to ACTIVE product types. Every public read
// of product types goes through it.
func ActiveScope(db *gorm.DB) *gorm.DB {
	return db.Where("product_types.is_active = ?", true)
}
