package product

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	producttype "github.com/geoinstrumentos/catalog-backend/internal/producttypes"
	"github.com/geoinstrumentos/catalog-backend/pkg/db/models"
	"github.com/geoinstrumentos/catalog-backend/pkg/enums"
	"github.com/geoinstrumentos/catalog-backend/pkg/storage"
	"github.com/geoinstrumentos/catalog-backend/pkg/types"
)

// ProductDTO is the admin view of a product.
type ProductDTO struct {
	ID            uuid.UUID                   `json:"id"`
	Name          string                      `json:"name"`
	Description   *string                     `json:"description"`
	Category      enums.ProductCategory       `json:"category"`
	Price         *decimal.Decimal            `json:"price"`
	ShowPrice     bool                        `json:"show_price"`
	DisplayPrice  *decimal.Decimal            `json:"display_price"`
	ImageKey      *string                     `json:"image_key"`
	ImageURL      *string                     `json:"image_url"`
	StockStatus   enums.StockStatus           `json:"stock_status"`
	ProductTypeID *uuid.UUID                  `json:"product_type_id"`
	ProductType   *producttype.ProductTypeDTO `json:"product_type"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// PublicProductDTO is the storefront view. The raw price is only exposed
// through display_price.
type PublicProductDTO struct {
	ID           uuid.UUID                   `json:"id"`
	Name         string                      `json:"name"`
	Description  *string                     `json:"description"`
	Category     enums.ProductCategory       `json:"category"`
	DisplayPrice *decimal.Decimal            `json:"display_price"`
	ImageURL     *string                     `json:"image_url"`
	StockStatus  enums.StockStatus           `json:"stock_status"`
	ProductType  *producttype.ProductTypeDTO `json:"product_type"`
}

func NewProductDTO(ctx context.Context, row *models.Product, urls *storage.URLBuilder) *ProductDTO {
	if row == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:            row.ID,
		Name:          row.Name,
		Description:   row.Description,
		Category:      row.Category,
		ShowPrice:     row.ShowPrice,
		DisplayPrice:  row.DisplayPrice(),
		ImageKey:      row.ImageKey,
		StockStatus:   row.StockStatus,
		ProductTypeID: row.ProductTypeID,
		ProductType:   producttype.NewProductTypeDTO(row.ProductType),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.Price.Valid {
		price := row.Price.Decimal
		dto.Price = &price
	}
	if urls != nil {
		dto.ImageURL = urls.URL(ctx, row.ImageKey)
	}
	return dto
}

func NewPublicProductDTO(ctx context.Context, row *models.Product, urls *storage.URLBuilder) *PublicProductDTO {
	if row == nil {
		return nil
	}
	dto := &PublicProductDTO{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		Category:     row.Category,
		DisplayPrice: row.DisplayPrice(),
		StockStatus:  row.StockStatus,
		ProductType:  producttype.NewProductTypeDTO(row.ProductType),
	}
	if urls != nil {
		dto.ImageURL = urls.URL(ctx, row.ImageKey)
	}
	return dto
}

// CreateInput is the payload for a new product. Only Name is required;
// Category and StockStatus fall back to FOR_SALE and IN_STOCK.
// NewProductType creates a type inline in the same transaction and takes
// precedence over ProductTypeID.
type CreateInput struct {
	Name           string                   `json:"name" validate:"required,max=200"`
	Description    *string                  `json:"description,omitempty"`
	Category       enums.ProductCategory    `json:"category,omitempty"`
	Price          *decimal.Decimal         `json:"price,omitempty"`
	ImageKey       *string                  `json:"image_key,omitempty" validate:"omitempty,max=512"`
	StockStatus    enums.StockStatus        `json:"stock_status,omitempty"`
	ShowPrice      bool                     `json:"show_price"`
	ProductTypeID  *uuid.UUID               `json:"product_type_id,omitempty"`
	NewProductType *producttype.CreateInput `json:"new_product_type,omitempty"`
}

// Patch lists the fields to change. Absent fields are left untouched; an
// explicit null clears a nullable column.
type Patch struct {
	Name          *string                `json:"name,omitempty" validate:"omitempty,max=200"`
	Description   types.NullableString   `json:"description"`
	Category      *enums.ProductCategory `json:"category,omitempty"`
	Price         types.NullableDecimal  `json:"price"`
	ImageKey      types.NullableString   `json:"image_key"`
	StockStatus   *enums.StockStatus     `json:"stock_status,omitempty"`
	ShowPrice     *bool                  `json:"show_price,omitempty"`
	ProductTypeID types.NullableUUID     `json:"product_type_id"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && !p.Description.Valid && p.Category == nil && !p.Price.Valid &&
		!p.ImageKey.Valid && p.StockStatus == nil && p.ShowPrice == nil && !p.ProductTypeID.Valid
}

// UpdateResult carries the updated product and any cleanup warnings.
type UpdateResult struct {
	Product  *ProductDTO
	Warnings []types.Warning
}

// DeleteResult reports the removed id and any cleanup warnings.
type DeleteResult struct {
	ID       uuid.UUID       `json:"id"`
	Warnings []types.Warning `json:"-"`
}
