package producttype

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/geoinstrumentos/catalog-backend/pkg/db/models"
)

// Repository persists product types.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// List returns types ordered for display. Inactive types are included only on request.
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]models.ProductType, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductType{})
	if !includeInactive {
		query = query.Scopes(models.ActiveScope)
	}

	var rows []models.ProductType
	if err := query.Order("sort_order ASC").Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductType, error) {
	var row models.ProductType
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindActiveByID loads a type only when it is ACTIVE.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.ProductType, error) {
	var row models.ProductType
	if err := r.db.WithContext(ctx).Scopes(models.ActiveScope).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, row *models.ProductType) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Update writes only the given columns.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	if len(columns) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.ProductType{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetActive flips the soft-delete flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.Update(ctx, id, map[string]any{"is_active": active})
}
