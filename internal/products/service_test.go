package product

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	producttype "github.com/geoinstrumentos/catalog-backend/internal/producttypes"
	"github.com/geoinstrumentos/catalog-backend/pkg/db"
	"github.com/geoinstrumentos/catalog-backend/pkg/db/dbtest"
	"github.com/geoinstrumentos/catalog-backend/pkg/enums"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"github.com/geoinstrumentos/catalog-backend/pkg/postcommit"
	"github.com/geoinstrumentos/catalog-backend/pkg/storage"
	"github.com/geoinstrumentos/catalog-backend/pkg/types"
)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]bool
	deleted   []string
	deleteErr error
	existsErr error
	checked   []string
}

func newFakeStore(keys ...string) *fakeStore {
	store := &fakeStore{objects: map[string]bool{}}
	for _, key := range keys {
		store.objects[key] = true
	}
	return store
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, key)
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.objects[key], nil
}

type fixture struct {
	conn    *gorm.DB
	store   *fakeStore
	svc     Service
	catalog Catalog
	types   producttype.Service
}

func newFixture(t *testing.T, keys ...string) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	store := newFakeStore(keys...)
	urls := storage.NewURLBuilder("cdn.example.com", logger.Nop())

	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(conn),
		TypeRepo:   producttype.NewRepository(conn),
		DB:         db.FromConn(conn),
		Store:      store,
		URLs:       urls,
		PostCommit: postcommit.NewRunner(logger.Nop(), nil),
	})
	require.NoError(t, err)

	cat, err := NewCatalog(NewPublicRepository(conn), urls)
	require.NoError(t, err)

	typeSvc, err := producttype.NewService(producttype.NewRepository(conn))
	require.NoError(t, err)

	return &fixture{conn: conn, store: store, svc: svc, catalog: cat, types: typeSvc}
}

func strPtr(v string) *string { return &v }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	_, err = NewCatalog(nil, nil)
	require.Error(t, err)
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	f := newFixture(t, "products/1-a.jpg")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{
		Name:        "  Estación Total Leica TS07 ",
		Description: strPtr("1\" precision"),
		Category:    enums.ProductCategoryForRent,
		Price:       decPtr("1500.50"),
		ImageKey:    strPtr("/products/1-a.jpg"),
		StockStatus: enums.StockStatusOnOrder,
		ShowPrice:   true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Estación Total Leica TS07", created.Name)
	assert.Equal(t, enums.ProductCategoryForRent, created.Category)
	assert.Equal(t, enums.StockStatusOnOrder, created.StockStatus)
	require.NotNil(t, created.Price)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("1500.50")))
	require.NotNil(t, created.DisplayPrice)
	require.NotNil(t, created.ImageKey)
	assert.Equal(t, "products/1-a.jpg", *created.ImageKey)
	require.NotNil(t, created.ImageURL)
	assert.Equal(t, "https://cdn.example.com/products/1-a.jpg", *created.ImageURL)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Name, got.Name)
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{Name: "Nivel"})
	require.NoError(t, err)
	assert.Equal(t, enums.ProductCategoryForSale, created.Category)
	assert.Equal(t, enums.StockStatusInStock, created.StockStatus)
	assert.Nil(t, created.Price)
	assert.Nil(t, created.DisplayPrice)
	assert.Nil(t, created.ImageURL)

	cases := []CreateInput{
		{Name: "   "},
		{Name: "x", Category: "LEASE"},
		{Name: "x", StockStatus: "SOLD"},
		{Name: "x", Price: decPtr("-1")},
		{Name: "x", ProductTypeID: func() *uuid.UUID { id := uuid.New(); return &id }()},
	}
	for _, input := range cases {
		_, err := f.svc.Create(ctx, input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v err %v", input, err)
	}

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "rejected inputs never reach the database")
}

func TestCreateHidesPriceUnlessShown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{Name: "GPS", Price: decPtr("900")})
	require.NoError(t, err)
	require.NotNil(t, created.Price)
	assert.Nil(t, created.DisplayPrice)

	public, err := f.catalog.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, public.DisplayPrice)
}

func TestCreateWithAbsoluteImageSkipsStorageCheck(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), CreateInput{Name: "Prisma", ImageKey: strPtr("https://img.example.com/p.png")})
	require.NoError(t, err)
	require.NotNil(t, created.ImageURL)
	assert.Equal(t, "https://img.example.com/p.png", *created.ImageURL)
	assert.Empty(t, f.store.checked)
}

func TestCreateKeepsUnverifiedImageKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing, err := f.svc.Create(ctx, CreateInput{Name: "Prisma", ImageKey: strPtr("products/missing.jpg")})
	require.NoError(t, err)
	require.NotNil(t, missing.ImageKey)
	assert.Equal(t, "products/missing.jpg", *missing.ImageKey)

	f.store.existsErr = errors.New("timeout")
	_, err = f.svc.Create(ctx, CreateInput{Name: "Bastón", ImageKey: strPtr("products/1.jpg")})
	require.NoError(t, err, "a failed existence check never blocks the write")
	assert.Equal(t, []string{"products/missing.jpg", "products/1.jpg"}, f.store.checked)
}

func TestCreateWithInlineProductType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{
		Name:           "Leica GS18",
		NewProductType: &producttype.CreateInput{Name: "Receptores GNSS"},
	})
	require.NoError(t, err)
	require.NotNil(t, created.ProductTypeID)
	require.NotNil(t, created.ProductType)
	assert.Equal(t, "receptores-gnss", created.ProductType.Slug)

	_, err = f.svc.Create(ctx, CreateInput{
		Name:           "Trimble R12",
		NewProductType: &producttype.CreateInput{Name: "receptores gnss"},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "a failed inline type rolls back the product")
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{Name: "Nivel", Description: strPtr("automático"), Price: decPtr("100")})
	require.NoError(t, err)

	res, err := f.svc.Update(ctx, created.ID, Patch{
		ShowPrice:   boolPtr(true),
		Description: types.Null[string](),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "Nivel", res.Product.Name)
	assert.Nil(t, res.Product.Description)
	require.NotNil(t, res.Product.DisplayPrice)
	assert.True(t, res.Product.DisplayPrice.Equal(decimal.NewFromInt(100)))

	_, err = f.svc.Update(ctx, created.ID, Patch{Price: types.Some(decimal.NewFromInt(-5))})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Update(ctx, created.ID, Patch{Name: strPtr("  ")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSequentialUpdatesLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{Name: "Teodolito"})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, created.ID, Patch{Name: strPtr("Teodolito A")})
	require.NoError(t, err)
	res, err := f.svc.Update(ctx, created.ID, Patch{Name: strPtr("Teodolito B")})
	require.NoError(t, err)
	assert.Equal(t, "Teodolito B", res.Product.Name)
}

func TestUpdateReplacesImageAndCleansUpOldObject(t *testing.T) {
	f := newFixture(t, "products/old.jpg", "products/new.jpg")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{Name: "GPS", ImageKey: strPtr("products/old.jpg")})
	require.NoError(t, err)

	res, err := f.svc.Update(ctx, created.ID, Patch{ImageKey: types.Some("products/new.jpg")})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"products/old.jpg"}, f.store.deleted)
	require.NotNil(t, res.Product.ImageKey)
	assert.Equal(t, "products/new.jpg", *res.Product.ImageKey)

	_, err = f.svc.Update(ctx, created.ID, Patch{Name: strPtr("GPS 2")})
	require.NoError(t, err)
	assert.Len(t, f.store.deleted, 1, "unchanged image is left alone")
}

func TestUpdateCleanupFailureIsAWarning(t *testing.T) {
	f := newFixture(t, "products/old.jpg")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{Name: "GPS", ImageKey: strPtr("products/old.jpg")})
	require.NoError(t, err)

	f.store.deleteErr = errors.New("access denied")
	res, err := f.svc.Update(ctx, created.ID, Patch{ImageKey: types.Null[string]()})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, string(pkgerrors.CodeStorage), res.Warnings[0].Code)
	assert.Equal(t, "products/old.jpg", res.Warnings[0].Key)
	assert.Nil(t, res.Product.ImageKey)
}

func TestDeleteRemovesRowAndImage(t *testing.T) {
	f := newFixture(t, "products/a.jpg")
	ctx := context.Background()

	withImage, err := f.svc.Create(ctx, CreateInput{Name: "A", ImageKey: strPtr("products/a.jpg")})
	require.NoError(t, err)
	withoutImage, err := f.svc.Create(ctx, CreateInput{Name: "B"})
	require.NoError(t, err)

	res, err := f.svc.Delete(ctx, withImage.ID)
	require.NoError(t, err)
	assert.Equal(t, withImage.ID, res.ID)
	assert.Equal(t, []string{"products/a.jpg"}, f.store.deleted)

	_, err = f.svc.Delete(ctx, withoutImage.ID)
	require.NoError(t, err)
	assert.Len(t, f.store.deleted, 1, "no storage call without an image")

	_, err = f.svc.Get(ctx, withImage.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteWithFailingStorageStillSucceeds(t *testing.T) {
	f := newFixture(t, "products/a.jpg")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{Name: "A", ImageKey: strPtr("products/a.jpg")})
	require.NoError(t, err)

	f.store.deleteErr = errors.New("unreachable")
	res, err := f.svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)

	_, err = f.svc.Get(ctx, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUnknownProductIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := f.svc.Get(ctx, missing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Update(ctx, missing, Patch{Name: strPtr("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Delete(ctx, missing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.catalog.Get(ctx, missing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCatalogHidesInactiveProductTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pt, err := f.types.Create(ctx, producttype.CreateInput{Name: "Niveles"})
	require.NoError(t, err)
	created, err := f.svc.Create(ctx, CreateInput{Name: "Nivel", ProductTypeID: &pt.ID, Price: decPtr("10"), ShowPrice: true})
	require.NoError(t, err)

	public, err := f.catalog.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, public.ProductType)
	require.NotNil(t, public.DisplayPrice)

	_, err = f.types.Deactivate(ctx, pt.ID)
	require.NoError(t, err)

	listed, err := f.catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Nil(t, listed[0].ProductType)

	admin, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, admin.ProductType, "admin view keeps inactive types")
}

func boolPtr(v bool) *bool { return &v }
