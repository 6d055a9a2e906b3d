package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/storage"
)

// Catalog is the read-only storefront view of products.
type Catalog interface {
	List(ctx context.Context) ([]PublicProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PublicProductDTO, error)
}

type catalog struct {
	repo *Repository
	urls *storage.URLBuilder
}

// NewCatalog expects a repository built with NewPublicRepository so inactive
// product types are hidden.
func NewCatalog(repo *Repository, urls *storage.URLBuilder) (Catalog, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if urls == nil {
		return nil, fmt.Errorf("url builder required")
	}
	return &catalog{repo: repo, urls: urls}, nil
}

func (c *catalog) List(ctx context.Context) ([]PublicProductDTO, error) {
	rows, err := c.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Database(err)
	}
	out := make([]PublicProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewPublicProductDTO(ctx, &rows[i], c.urls))
	}
	return out, nil
}

func (c *catalog) Get(ctx context.Context, id uuid.UUID) (*PublicProductDTO, error) {
	row, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return NewPublicProductDTO(ctx, row, c.urls), nil
}
