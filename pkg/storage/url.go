package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
)

// PublicURL maps a stored key to its public address on domain. Absolute
// http(s) inputs are returned unchanged and an empty key yields "".
func PublicURL(key, domain string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if IsAbsoluteURL(key) {
		return key
	}
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	domain = strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	return "https://" + domain + "/" + strings.TrimLeft(key, "/")
}

// IsAbsoluteURL reports whether value already carries an http(s) scheme.
func IsAbsoluteURL(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
}

// URLBuilder binds PublicURL to the configured domain.
type URLBuilder struct {
	domain string
	logg   *logger.Logger
	warn   sync.Once
}

func NewURLBuilder(domain string, logg *logger.Logger) *URLBuilder {
	return &URLBuilder{domain: strings.TrimSpace(domain), logg: logg}
}

// URL returns the public address for key. A nil key maps to nil.
func (b *URLBuilder) URL(ctx context.Context, key *string) *string {
	if key == nil || strings.TrimSpace(*key) == "" {
		return nil
	}
	if b.domain == "" && !IsAbsoluteURL(*key) {
		b.warnMissingDomain(ctx)
	}
	u := PublicURL(*key, b.domain)
	return &u
}

// Domain returns the configured public domain.
func (b *URLBuilder) Domain() string {
	return b.domain
}

func (b *URLBuilder) warnMissingDomain(ctx context.Context) {
	b.warn.Do(func() {
		if b.logg != nil {
			b.logg.Warn(ctx, "storage public domain is not configured; image urls will be incomplete")
		}
	})
}
