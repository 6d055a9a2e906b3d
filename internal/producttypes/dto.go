package producttype

import (
	"time"

	"github.com/google/uuid"

	"github.com/geoinstrumentos/catalog-backend/pkg/db/models"
	"github.com/geoinstrumentos/catalog-backend/pkg/enums"
	"github.com/geoinstrumentos/catalog-backend/pkg/types"
)

// ProductTypeDTO is the payload returned to clients.
type ProductTypeDTO struct {
	ID        uuid.UUID               `json:"id"`
	Name      string                  `json:"name"`
	Slug      string                  `json:"slug"`
	Icon      *string                 `json:"icon,omitempty"`
	Color     *string                 `json:"color,omitempty"`
	SortOrder int                     `json:"sort_order"`
	Status    enums.ProductTypeStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func NewProductTypeDTO(row *models.ProductType) *ProductTypeDTO {
	if row == nil {
		return nil
	}
	return &ProductTypeDTO{
		ID:        row.ID,
		Name:      row.Name,
		Slug:      row.Slug,
		Icon:      row.Icon,
		Color:     row.Color,
		SortOrder: row.SortOrder,
		Status:    row.Status(),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// CreateInput describes a new type. Slug is derived from Name when absent.
type CreateInput struct {
	Name      string  `json:"name" validate:"required,max=120"`
	Slug      *string `json:"slug,omitempty" validate:"omitempty,max=140"`
	Icon      *string `json:"icon,omitempty" validate:"omitempty,max=64"`
	Color     *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	SortOrder int     `json:"sort_order" validate:"gte=0"`
}

// Patch lists the fields to change. Icon and Color may be cleared with null.
type Patch struct {
	Name      *string              `json:"name,omitempty" validate:"omitempty,max=120"`
	Slug      *string              `json:"slug,omitempty" validate:"omitempty,max=140"`
	Icon      types.NullableString `json:"icon"`
	Color     types.NullableString `json:"color"`
	SortOrder *int                 `json:"sort_order,omitempty" validate:"omitempty,gte=0"`
}
