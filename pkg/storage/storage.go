package storage

import (
	"context"
	"io"
	"time"

	"github.com/geoinstrumentos/catalog-backend/pkg/config"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	miniostore "github.com/geoinstrumentos/catalog-backend/pkg/storage/minio"
	s3store "github.com/geoinstrumentos/catalog-backend/pkg/storage/s3"
)

// Client is the object store surface used by the catalog. Keys are
// bucket-relative, e.g. products/1700000000000-<uuid>.png.
type Client interface {
	// PresignPut returns a URL that accepts a single PUT of key with the
	// given content type until ttl elapses.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	_ Client = (*s3store.Client)(nil)
	_ Client = (*miniostore.Client)(nil)
)

// New validates cfg and builds the configured driver. Missing credentials are
// a configuration error and no client is built.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, err.Error())
	}

	var (
		client Client
		err    error
	)
	switch cfg.Driver {
	case config.StorageDriverMinIO:
		client, err = miniostore.NewClient(cfg)
	default:
		client, err = s3store.NewClient(ctx, cfg)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "initialize storage client")
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"storage_driver": cfg.Driver,
			"bucket":         cfg.Bucket,
		})
		logg.Info(ctx, "storage client initialized")
	}
	return client, nil
}
