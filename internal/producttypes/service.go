package producttype

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/geoinstrumentos/catalog-backend/pkg/db"
	"github.com/geoinstrumentos/catalog-backend/pkg/db/models"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/slug"
)

// Service manages product types. Deactivate is the only form of deletion.
type Service interface {
	List(ctx context.Context, includeInactive bool) ([]ProductTypeDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductTypeDTO, error)
	Create(ctx context.Context, input CreateInput) (*ProductTypeDTO, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*ProductTypeDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*ProductTypeDTO, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*ProductTypeDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product type repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]ProductTypeDTO, error) {
	rows, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, pkgerrors.Database(err)
	}
	out := make([]ProductTypeDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductTypeDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductTypeDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return NewProductTypeDTO(row), nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ProductTypeDTO, error) {
	row, err := NewProductType(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, mapWriteError(err)
	}
	return NewProductTypeDTO(row), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*ProductTypeDTO, error) {
	columns, err := patchColumns(patch)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, columns); err != nil {
		return nil, mapWriteError(err)
	}
	return s.Get(ctx, id)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*ProductTypeDTO, error) {
	return s.setActive(ctx, id, false)
}

func (s *service) Reactivate(ctx context.Context, id uuid.UUID) (*ProductTypeDTO, error) {
	return s.setActive(ctx, id, true)
}

func (s *service) setActive(ctx context.Context, id uuid.UUID, active bool) (*ProductTypeDTO, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, mapLookupError(err)
	}
	return s.Get(ctx, id)
}

// NewProductType validates input and builds an ACTIVE row ready to insert.
func NewProductType(input CreateInput) (*models.ProductType, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product type name is required").
			WithDetails(map[string]string{"name": "is required"})
	}
	if input.SortOrder < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sort_order must be zero or greater")
	}

	source := name
	if input.Slug != nil && strings.TrimSpace(*input.Slug) != "" {
		source = *input.Slug
	}
	value := slug.Make(source)
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from name").
			WithDetails(map[string]string{"slug": "must contain letters or digits"})
	}

	return &models.ProductType{
		Name:      name,
		Slug:      value,
		Icon:      trimOptional(input.Icon),
		Color:     trimOptional(input.Color),
		SortOrder: input.SortOrder,
		IsActive:  true,
	}, nil
}

func patchColumns(patch Patch) (map[string]any, error) {
	columns := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product type name cannot be empty")
		}
		columns["name"] = name
	}
	if patch.Slug != nil {
		value := slug.Make(*patch.Slug)
		if value == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug must contain letters or digits")
		}
		columns["slug"] = value
	}
	if patch.Icon.Valid {
		columns["icon"] = trimOptional(patch.Icon.Value)
	}
	if patch.Color.Valid {
		columns["color"] = trimOptional(patch.Color.Value)
	}
	if patch.SortOrder != nil {
		if *patch.SortOrder < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sort_order must be zero or greater")
		}
		columns["sort_order"] = *patch.SortOrder
	}
	return columns, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mapLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product type not found")
	}
	return pkgerrors.Database(err)
}

// MapWriteError converts insert/update failures, turning slug collisions into conflicts.
func MapWriteError(err error) error {
	return mapWriteError(err)
}

func mapWriteError(err error) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a product type with this slug already exists")
	}
	return mapLookupError(err)
}
