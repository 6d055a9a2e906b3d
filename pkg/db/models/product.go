package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/geoinstrumentos/catalog-backend/pkg/enums"
)

// Product is a catalog listing. ImageKey is a bucket-relative object key and
// is not transactionally tied to the object store.
type Product struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string                `gorm:"column:name;not null"`
	Description   *string               `gorm:"column:description"`
	Category      enums.ProductCategory `gorm:"column:category;type:product_category;not null;default:FOR_SALE"`
	Price         decimal.NullDecimal   `gorm:"column:price;type:numeric(12,2)"`
	ImageKey      *string               `gorm:"column:image_key"`
	StockStatus   enums.StockStatus     `gorm:"column:stock_status;type:stock_status;not null;default:IN_STOCK"`
	ShowPrice     bool                  `gorm:"column:show_price;not null;default:false"`
	ProductTypeID *uuid.UUID            `gorm:"column:product_type_id;type:uuid"`
	ProductType   *ProductType          `gorm:"foreignKey:ProductTypeID"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

// BeforeCreate assigns the id client-side so non-postgres dialects work too.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DisplayPrice returns the price only when it exists and is marked visible.
func (p Product) DisplayPrice() *decimal.Decimal {
	if !p.ShowPrice || !p.Price.Valid {
		return nil
	}
	price := p.Price.Decimal
	return &price
}
