package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinstrumentos/catalog-backend/internal/auth"
	"github.com/geoinstrumentos/catalog-backend/pkg/config"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"github.com/geoinstrumentos/catalog-backend/pkg/types"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type staticSession bool

func (s staticSession) IsSessionValid(*http.Request) bool { return bool(s) }

func newGuard() *auth.Guard {
	return auth.NewGuard(config.AdminConfig{Prefix: "/admin", LoginPath: "/login", LandingPath: "/admin"})
}

func TestRouteGuardRedirects(t *testing.T) {
	cases := []struct {
		name     string
		path     string
		valid    bool
		status   int
		location string
	}{
		{name: "admin without session", path: "/admin/products", status: http.StatusSeeOther, location: "/login"},
		{name: "admin root without session", path: "/admin", status: http.StatusSeeOther, location: "/login"},
		{name: "admin with session", path: "/admin/products", valid: true, status: http.StatusOK},
		{name: "login with session", path: "/login", valid: true, status: http.StatusSeeOther, location: "/admin"},
		{name: "login without session", path: "/login", status: http.StatusOK},
		{name: "public page", path: "/productos", status: http.StatusOK},
		{name: "lookalike prefix", path: "/administracion", status: http.StatusOK},
		{name: "double slash", path: "//admin/products", status: http.StatusSeeOther, location: "/login"},
		{name: "dot segment", path: "/./admin/products", status: http.StatusSeeOther, location: "/login"},
		{name: "parent segment", path: "/x/../admin/products", status: http.StatusSeeOther, location: "/login"},
		{name: "trailing slash", path: "/admin/", status: http.StatusSeeOther, location: "/login"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RouteGuard(newGuard(), staticSession(tc.valid), nil)(okHandler)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
		})
	}
}

func TestRouteGuardAdminAPIAnswersJSON(t *testing.T) {
	handler := RouteGuard(newGuard(), staticSession(false), nil)(okHandler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/products", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeUnauthorized), body.Error.Code)

	for _, target := range []string{"/api//admin/products", "/api/./admin/products", "/api/x/../admin/products"} {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}

	handler = RouteGuard(newGuard(), staticSession(true), nil)(okHandler)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/products", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func (f *fakeLimiter) RetryAfter(context.Context, string) (time.Duration, error) {
	return 42 * time.Second, nil
}

func (f *fakeLimiter) Reset(_ context.Context, scope string) error {
	delete(f.counts, scope)
	return nil
}

func TestLoginRateLimit(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	handler := LoginRateLimit(LoginRateLimitPolicy{Window: time.Minute, IPLimit: 2}, limiter, nil)(okHandler)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i < 2 {
			assert.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	}

	other := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	other.RemoteAddr = "9.9.9.9:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), limiter.counts["login:9.9.9.9"])
}

func TestLoginRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	handler := LoginRateLimit(LoginRateLimitPolicy{Window: time.Minute, IPLimit: 1}, limiter, nil)(okHandler)

	for i, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		req.Header.Set("X-Forwarded-For", spoofed)
		req.Header.Set("X-Real-IP", spoofed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
	assert.Equal(t, int64(3), limiter.counts["login:1.2.3.4"])
	assert.NotContains(t, limiter.counts, "login:2.2.2.2")
}

func TestLoginRateLimitUsesNearestUntrustedHop(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	policy := LoginRateLimitPolicy{
		Window:         time.Minute,
		IPLimit:        5,
		TrustedProxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
	}
	var scope string
	handler := LoginRateLimit(policy, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope = LoginScope(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:443"
	req.Header.Set("X-Forwarded-For", "6.6.6.6, 8.8.8.8, 10.1.1.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "login:8.8.8.8", scope)
	assert.Equal(t, int64(1), limiter.counts["login:8.8.8.8"])
	assert.NotContains(t, limiter.counts, "login:6.6.6.6")
}

func TestLoginRateLimitDisabledAndFailing(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}, err: errors.New("redis down")}

	disabled := LoginRateLimit(LoginRateLimitPolicy{}, limiter, nil)(okHandler)
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := LoginRateLimit(LoginRateLimitPolicy{Window: time.Minute, IPLimit: 1}, limiter, nil)(okHandler)
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecovererWritesInternalError(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	handler := Recoverer(logg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Contains(t, buf.String(), "panic.recovered")
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

type observation struct {
	method string
	route  string
	status int
}

type fakeObserver struct {
	seen []observation
}

func (f *fakeObserver) Observe(method, route string, status int, _ time.Duration) {
	f.seen = append(f.seen, observation{method: method, route: route, status: status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	observer := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(Metrics(observer))
	r.Get("/api/public/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/products/123", nil))

	require.Len(t, observer.seen, 1)
	assert.Equal(t, observation{method: "GET", route: "/api/public/products/{id}", status: 404}, observer.seen[0])
}

func TestLoggingRecordsStatus(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/admin/products", nil))
	assert.Contains(t, buf.String(), `"status":201`)
	assert.Contains(t, buf.String(), `"request.complete"`)
}
