package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	producttype "github.com/geoinstrumentos/catalog-backend/internal/producttypes"
	"github.com/geoinstrumentos/catalog-backend/pkg/db"
	"github.com/geoinstrumentos/catalog-backend/pkg/db/models"
	"github.com/geoinstrumentos/catalog-backend/pkg/enums"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"github.com/geoinstrumentos/catalog-backend/pkg/postcommit"
	"github.com/geoinstrumentos/catalog-backend/pkg/storage"
)

// Service exposes admin product management. Every call is independent; no
// transaction spans two calls.
type Service interface {
	List(ctx context.Context) ([]ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, input CreateInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*UpdateResult, error)
	Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type objectStore interface {
	postcommit.ObjectDeleter
	Exists(ctx context.Context, key string) (bool, error)
}

// ServiceParams bundles the dependencies of the admin product service.
// PostCommit and Logger are optional.
type ServiceParams struct {
	Repo       *Repository
	TypeRepo   *producttype.Repository
	DB         txRunner
	Store      objectStore
	URLs       *storage.URLBuilder
	PostCommit *postcommit.Runner
	Logger     *logger.Logger
}

type service struct {
	repo     *Repository
	typeRepo *producttype.Repository
	db       txRunner
	store    objectStore
	urls     *storage.URLBuilder
	hooks    *postcommit.Runner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.TypeRepo == nil {
		return nil, fmt.Errorf("product type repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("storage client required")
	}
	if params.URLs == nil {
		return nil, fmt.Errorf("url builder required")
	}
	hooks := params.PostCommit
	if hooks == nil {
		hooks = postcommit.NewRunner(nil, nil)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		typeRepo: params.TypeRepo,
		db:       params.DB,
		store:    params.Store,
		urls:     params.URLs,
		hooks:    hooks,
		logg:     logg,
	}, nil
}

func (s *service) List(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Database(err)
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(ctx, &rows[i], s.urls))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return NewProductDTO(ctx, row, s.urls), nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ProductDTO, error) {
	row, err := buildProduct(input)
	if err != nil {
		return nil, err
	}

	var newType *models.ProductType
	if input.NewProductType != nil {
		newType, err = producttype.NewProductType(*input.NewProductType)
		if err != nil {
			return nil, err
		}
		row.ProductTypeID = nil
	} else if row.ProductTypeID != nil {
		if err := s.ensureProductType(ctx, *row.ProductTypeID); err != nil {
			return nil, err
		}
	}

	s.verifyImage(ctx, row.ImageKey)

	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if newType != nil {
			if err := s.typeRepo.WithTx(tx).Create(ctx, newType); err != nil {
				return producttype.MapWriteError(err)
			}
			row.ProductTypeID = &newType.ID
		}
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Database(err)
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Database(err)
	}

	return s.Get(ctx, row.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*UpdateResult, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	if patch.ProductTypeID.Valid && patch.ProductTypeID.Value != nil {
		if err := s.ensureProductType(ctx, *patch.ProductTypeID.Value); err != nil {
			return nil, err
		}
	}

	newKey := normalizeKey(patch.ImageKey.Value)
	imageChanged := patch.ImageKey.Valid && !sameKey(existing.ImageKey, newKey)
	if imageChanged {
		s.verifyImage(ctx, newKey)
	}

	if err := s.repo.Update(ctx, id, patchColumns(patch, newKey)); err != nil {
		return nil, mapLookupError(err)
	}

	warnings := s.hooks.Run(ctx, s.cleanupHooks(existing.ImageKey, imageChanged)...)

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Product: updated, Warnings: warnings}, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, mapLookupError(err)
	}

	warnings := s.hooks.Run(ctx, s.cleanupHooks(existing.ImageKey, true)...)
	return &DeleteResult{ID: id, Warnings: warnings}, nil
}

// cleanupHooks removes a previous image that lives in our bucket. Absolute
// URLs point elsewhere and are left alone.
func (s *service) cleanupHooks(previous *string, changed bool) []postcommit.Hook {
	if !changed || previous == nil {
		return nil
	}
	key := strings.TrimSpace(*previous)
	if key == "" || storage.IsAbsoluteURL(key) {
		return nil
	}
	return []postcommit.Hook{postcommit.DeleteObject(s.store, key)}
}

func (s *service) ensureProductType(ctx context.Context, id uuid.UUID) error {
	if _, err := s.typeRepo.FindByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "product_type_id does not reference a product type").
				WithDetails(map[string]string{"product_type_id": "unknown product type"})
		}
		return pkgerrors.Database(err)
	}
	return nil
}

// verifyImage logs when a referenced key has no object behind it. The row
// is saved either way: image_key and the bucket are only eventually
// consistent.
func (s *service) verifyImage(ctx context.Context, key *string) {
	if key == nil || storage.IsAbsoluteURL(*key) {
		return
	}
	ok, err := s.store.Exists(ctx, *key)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(s.logg.WithObjectKey(ctx, *key), map[string]any{"error": err.Error()}), "product.image_check_failed")
		return
	}
	if !ok {
		s.logg.Warn(s.logg.WithObjectKey(ctx, *key), "product.image_missing")
	}
}

func buildProduct(input CreateInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
			WithDetails(map[string]string{"name": "is required"})
	}

	category := input.Category
	if category == "" {
		category = enums.ProductCategoryForSale
	}
	if !category.IsValid() {
		return nil, invalidEnum("category", string(category))
	}

	stock := input.StockStatus
	if stock == "" {
		stock = enums.StockStatusInStock
	}
	if !stock.IsValid() {
		return nil, invalidEnum("stock_status", string(stock))
	}

	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}

	row := &models.Product{
		Name:          name,
		Description:   input.Description,
		Category:      category,
		ImageKey:      normalizeKey(input.ImageKey),
		StockStatus:   stock,
		ShowPrice:     input.ShowPrice,
		ProductTypeID: input.ProductTypeID,
	}
	if input.Price != nil {
		row.Price = decimal.NewNullDecimal(*input.Price)
	}
	return row, nil
}

func validatePatch(patch Patch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty").
			WithDetails(map[string]string{"name": "is required"})
	}
	if patch.Category != nil && !patch.Category.IsValid() {
		return invalidEnum("category", string(*patch.Category))
	}
	if patch.StockStatus != nil && !patch.StockStatus.IsValid() {
		return invalidEnum("stock_status", string(*patch.StockStatus))
	}
	if patch.Price.Valid {
		return validatePrice(patch.Price.Value)
	}
	return nil
}

func validatePrice(price *decimal.Decimal) error {
	if price != nil && price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or greater").
			WithDetails(map[string]string{"price": "must be >= 0"})
	}
	return nil
}

func invalidEnum(field, value string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s %q", field, value)).
		WithDetails(map[string]string{field: "is not an allowed value"})
}

// patchColumns translates the patch into the column set for a partial update.
func patchColumns(patch Patch, imageKey *string) map[string]any {
	columns := map[string]any{}
	if patch.Name != nil {
		columns["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Description.Valid {
		columns["description"] = patch.Description.Value
	}
	if patch.Category != nil {
		columns["category"] = *patch.Category
	}
	if patch.Price.Valid {
		if patch.Price.Value == nil {
			columns["price"] = decimal.NullDecimal{}
		} else {
			columns["price"] = decimal.NewNullDecimal(*patch.Price.Value)
		}
	}
	if patch.ImageKey.Valid {
		columns["image_key"] = imageKey
	}
	if patch.StockStatus != nil {
		columns["stock_status"] = *patch.StockStatus
	}
	if patch.ShowPrice != nil {
		columns["show_price"] = *patch.ShowPrice
	}
	if patch.ProductTypeID.Valid {
		columns["product_type_id"] = patch.ProductTypeID.Value
	}
	return columns
}

func normalizeKey(key *string) *string {
	if key == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*key)
	if !storage.IsAbsoluteURL(trimmed) {
		trimmed = strings.TrimLeft(trimmed, "/")
	}
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameKey(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func mapLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Database(err)
}
