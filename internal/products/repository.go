package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/geoinstrumentos/catalog-backend/pkg/db/models"
)

// Repository persists products. Reads load the optional product type with
// each row.
type Repository struct {
	db *gorm.DB
	// activeTypesOnly hides inactive product types on read paths.
	activeTypesOnly bool
}

// NewRepository builds the admin repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// NewPublicRepository builds the storefront repository. Joined product types
// are limited to ACTIVE ones.
func NewPublicRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, activeTypesOnly: true}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx, activeTypesOnly: r.activeTypesOnly}
}

func (r *Repository) withType(ctx context.Context) *gorm.DB {
	query := r.db.WithContext(ctx)
	if r.activeTypesOnly {
		return query.Preload("ProductType", models.ActiveScope)
	}
	return query.Preload("ProductType")
}

// List returns every product, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	if err := r.withType(ctx).Order("created_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads one product or gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	if err := r.withType(ctx).First(&row, "products.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, row *models.Product) error {
	return r.db.WithContext(ctx).Omit("ProductType").Create(row).Error
}

// Update writes only the given columns. There is no version check, so the
// last committed write wins.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	if len(columns) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
