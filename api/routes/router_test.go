package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinstrumentos/catalog-backend/api/controllers"
	"github.com/geoinstrumentos/catalog-backend/internal/auth"
	"github.com/geoinstrumentos/catalog-backend/internal/checkout"
	product "github.com/geoinstrumentos/catalog-backend/internal/products"
	producttype "github.com/geoinstrumentos/catalog-backend/internal/producttypes"
	upload "github.com/geoinstrumentos/catalog-backend/internal/uploads"
	"github.com/geoinstrumentos/catalog-backend/pkg/config"
	"github.com/geoinstrumentos/catalog-backend/pkg/db"
	"github.com/geoinstrumentos/catalog-backend/pkg/db/dbtest"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"github.com/geoinstrumentos/catalog-backend/pkg/metrics"
	"github.com/geoinstrumentos/catalog-backend/pkg/postcommit"
	"github.com/geoinstrumentos/catalog-backend/pkg/storage"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?sig=1", nil
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

type testServer struct {
	handler http.Handler
	store   *memoryStore
}

func newTestServer(t *testing.T, webDir string) *testServer {
	t.Helper()

	cfg := &config.Config{
		App:      config.AppConfig{Env: "dev", Port: "8080", WebDir: webDir},
		Admin:    config.AdminConfig{Username: "admin", Password: "s3cret", Prefix: "/admin", LoginPath: "/login", LandingPath: "/admin"},
		Upload:   config.UploadConfig{URLExpiry: 300 * time.Second, MaxUploadMB: 10},
		Checkout: config.CheckoutConfig{WhatsAppNumber: "5215512345678", WhatsAppGreeting: "Hola"},
	}
	logg := logger.Nop()
	conn := dbtest.Open(t)
	store := &memoryStore{objects: map[string][]byte{}}
	urls := storage.NewURLBuilder("cdn.example.com", logg)
	reg := prometheus.NewRegistry()

	typeRepo := producttype.NewRepository(conn)
	typeSvc, err := producttype.NewService(typeRepo)
	require.NoError(t, err)

	productSvc, err := product.NewService(product.ServiceParams{
		Repo:       product.NewRepository(conn),
		TypeRepo:   typeRepo,
		DB:         db.FromConn(conn),
		Store:      store,
		URLs:       urls,
		PostCommit: postcommit.NewRunner(logg, metrics.NewCleanupMetrics(reg)),
		Logger:     logg,
	})
	require.NoError(t, err)

	catalog, err := product.NewCatalog(product.NewPublicRepository(conn), urls)
	require.NoError(t, err)

	uploadSvc, err := upload.NewService(store, urls, cfg.Upload.URLExpiry, cfg.Upload.MaxUploadBytes())
	require.NoError(t, err)

	checkoutSvc, err := checkout.NewService(catalog, cfg.Checkout)
	require.NoError(t, err)

	gate, err := auth.NewGate(cfg.Admin, cfg.App)
	require.NoError(t, err)

	handler := NewRouter(Deps{
		Config:       cfg,
		Logger:       logg,
		Ready:        map[string]controllers.Pinger{"db": db.FromConn(conn), "storage": store},
		Gate:         gate,
		Guard:        auth.NewGuard(cfg.Admin),
		Products:     productSvc,
		Catalog:      catalog,
		ProductTypes: typeSvc,
		Uploads:      uploadSvc,
		Checkout:     checkoutSvc,
		HTTPMetrics:  metrics.NewHTTPMetrics(reg),
		Gatherer:     reg,
	})
	return &testServer{handler: handler, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Warnings []any           `json:"warnings"`
	Error    struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, "")

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/ready", nil).Code)

	rec := srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"}`)
}

func TestLoginFlow(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "incorrect credentials", env.Error.Message)
	assert.Empty(t, rec.Result().Cookies())

	cookie := srv.login(t)
	assert.Equal(t, auth.SessionCookieValue, cookie.Value)
	assert.Equal(t, 604800, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)

	rec = srv.do(t, http.MethodGet, "/api/auth/session", nil, cookie)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)

	rec = srv.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(t, http.MethodGet, "/api/admin/products", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/admin/productos", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	forged := &http.Cookie{Name: auth.SessionCookieName, Value: "yes"}
	rec = srv.do(t, http.MethodGet, "/api/admin/products", nil, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := srv.login(t)
	rec = srv.do(t, http.MethodGet, "/login", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = srv.do(t, http.MethodGet, "/api/admin/products", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decode(t, rec).Data))
}

func TestProductLifecycleThroughAPI(t *testing.T) {
	srv := newTestServer(t, "")
	cookie := srv.login(t)

	rec := srv.do(t, http.MethodPost, "/api/admin/products", map[string]any{
		"name":             "Leica TS07",
		"price":            "45000.00",
		"show_price":       true,
		"category":         "FOR_SALE",
		"new_product_type": map[string]any{"name": "Estaciones Totales"},
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created product.ProductDTO
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	require.NotNil(t, created.ProductType)
	assert.Equal(t, "estaciones-totales", created.ProductType.Slug)

	rec = srv.do(t, http.MethodGet, "/api/public/products/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"display_price"`)
	assert.NotContains(t, rec.Body.String(), `"show_price"`)

	rec = srv.do(t, http.MethodPatch, "/api/admin/products/"+created.ID.String(), map[string]any{"show_price": false}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPatch, "/api/admin/products/"+created.ID.String(), map[string]any{}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/public/checkout/whatsapp", map[string]any{"product_id": created.ID.String(), "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "https://wa.me/5215512345678?text=")
	assert.NotContains(t, rec.Body.String(), "Precio", "hidden price is not shared")

	rec = srv.do(t, http.MethodDelete, "/api/admin/products/"+created.ID.String(), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/public/products/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/public/products/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductTypeSoftDeleteThroughAPI(t *testing.T) {
	srv := newTestServer(t, "")
	cookie := srv.login(t)

	rec := srv.do(t, http.MethodPost, "/api/admin/product-types", map[string]any{"name": "Niveles"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created producttype.ProductTypeDTO
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))

	rec = srv.do(t, http.MethodDelete, "/api/admin/product-types/"+created.ID.String(), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/public/product-types", nil)
	assert.JSONEq(t, `[]`, string(decode(t, rec).Data))

	rec = srv.do(t, http.MethodGet, "/api/admin/product-types", nil, cookie)
	assert.Contains(t, rec.Body.String(), `"INACTIVE"`)

	rec = srv.do(t, http.MethodPost, "/api/admin/product-types/"+created.ID.String()+"/reactivate", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ACTIVE"`)
}

func TestUploadsThroughAPI(t *testing.T) {
	srv := newTestServer(t, "")
	cookie := srv.login(t)

	rec := srv.do(t, http.MethodPost, "/api/admin/uploads/presign", map[string]string{"file_name": "a.pdf", "content_type": "application/pdf"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/admin/uploads/presign", map[string]string{"file_name": "a.webp", "content_type": "image/webp"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"upload_url"`)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="foto.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\npayload"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/uploads", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out upload.UploadOutput
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &out))
	assert.True(t, strings.HasPrefix(out.Key, "products/"))
	assert.True(t, strings.HasSuffix(out.Key, ".png"))
	ok, _ := srv.store.Exists(context.Background(), out.Key)
	assert.True(t, ok)

	rec = srv.do(t, http.MethodPost, "/api/admin/products", map[string]any{"name": "Con foto", "image_key": out.Key}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "https://cdn.example.com/"+out.Key)
}

func TestStaticSite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>inicio</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalogo.html"), []byte("<h1>catalogo</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "404.html"), []byte("<h1>no encontrado</h1>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "admin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "admin", "index.html"), []byte("<h1>panel</h1>"), 0o644))

	srv := newTestServer(t, dir)

	rec := srv.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "inicio")

	rec = srv.do(t, http.MethodGet, "/catalogo", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalogo")

	rec = srv.do(t, http.MethodGet, "/nada", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no encontrado")

	rec = srv.do(t, http.MethodGet, "/admin/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	cookie := srv.login(t)
	rec = srv.do(t, http.MethodGet, "/admin/", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "panel")
}

func TestStaticSiteAdminPagesRequireSessionForNonCanonicalPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "admin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "admin", "dashboard.html"), []byte("SECRET ADMIN PAGE"), 0o644))

	srv := newTestServer(t, dir)

	for _, target := range []string{"/admin/dashboard", "//admin/dashboard", "/./admin/dashboard", "/x/../admin/dashboard"} {
		t.Run(target, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, target, nil)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
			assert.NotContains(t, rec.Body.String(), "SECRET ADMIN PAGE")
		})
	}

	cookie := srv.login(t)
	rec := srv.do(t, http.MethodGet, "//admin/dashboard", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SECRET ADMIN PAGE")
}
