package minio

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinstrumentos/catalog-backend/pkg/config"
)

func TestSplitEndpoint(t *testing.T) {
	host, secure := splitEndpoint("https://garage.local:3900/", false)
	assert.Equal(t, "garage.local:3900", host)
	assert.True(t, secure)

	host, secure = splitEndpoint("http://garage.local:3900", true)
	assert.Equal(t, "garage.local:3900", host)
	assert.False(t, secure)

	host, secure = splitEndpoint("garage.local:3900", true)
	assert.Equal(t, "garage.local:3900", host)
	assert.True(t, secure)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(config.StorageConfig{Bucket: "catalog"})
	require.Error(t, err)
}

func TestPresignPutSignsContentType(t *testing.T) {
	client, err := NewClient(config.StorageConfig{
		Driver:          config.StorageDriverMinIO,
		Bucket:          "catalog",
		Region:          "us-east-1",
		Endpoint:        "http://garage.local:3900",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
	})
	require.NoError(t, err)

	raw, err := client.PresignPut(context.Background(), "products/1-a.webp", "image/webp", 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "garage.local:3900", u.Host)
	assert.Equal(t, "/catalog/products/1-a.webp", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")
}
