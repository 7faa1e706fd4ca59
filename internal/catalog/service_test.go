package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quenbyco/storefront-backend/pkg/db/models"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  currency TEXT NOT NULL DEFAULT 'USD',
  base_price_cents INTEGER NOT NULL,
  compare_at_price_cents INTEGER,
  images TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
)`,
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  title TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  price_cents INTEGER,
  compare_at_price_cents INTEGER,
  image_url TEXT,
  position INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
)`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func createProduct(t *testing.T, db *gorm.DB, title string, base int64, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		Title:          title,
		Currency:       "USD",
		BasePriceCents: base,
		IsActive:       active,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func createVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, title string, price *int64, position int, active bool) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  productID,
		Title:      title,
		SKU:        fmt.Sprintf("SKU-%s", uuid.NewString()),
		PriceCents: price,
		Position:   position,
		IsActive:   active,
	}
	require.NoError(t, db.Create(variant).Error)
	return variant
}

type stubCache struct {
	data     map[string]string
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newStubCache() *stubCache {
	return &stubCache{data: map[string]string{}}
}

func (c *stubCache) Get(_ context.Context, key string) (string, error) {
	c.getCalls++
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.data[key], nil
}

func (c *stubCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.setCalls++
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value.(string)
	return nil
}

func (c *stubCache) CacheKey(parts ...string) string {
	key := "sf:cache"
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

func newCatalogService(t *testing.T, db *gorm.DB, cache SearchCache) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:           NewRepository(db),
		Cache:          cache,
		SearchCacheTTL: time.Minute,
		SearchPageSize: 10,
	})
	require.NoError(t, err)
	return svc
}

func int64ptr(v int64) *int64 { return &v }

func TestGetProduct(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db, nil)
	ctx := context.Background()

	product := createProduct(t, db, "Field Jacket", 8900, true)
	createVariant(t, db, product.ID, "Small", nil, 1, true)
	createVariant(t, db, product.ID, "Large", int64ptr(9900), 2, true)
	createVariant(t, db, product.ID, "Discontinued", nil, 3, false)

	dto, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Field Jacket", dto.Title)
	require.Len(t, dto.Variants, 2, "inactive variants are hidden")
	assert.Equal(t, "Small", dto.Variants[0].Title)
	assert.Equal(t, int64(8900), dto.Variants[0].PriceCents, "nil variant price falls back to the base")
	assert.Equal(t, int64(9900), dto.Variants[1].PriceCents)
	assert.True(t, dto.Pricing.HasVariablePricing)
	assert.Equal(t, "from $89.00", dto.Pricing.DisplayPrice)
}

func TestGetProductNotFound(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db, nil)

	_, err := svc.GetProduct(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestGetProductHidesInactive(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db, nil)

	product := createProduct(t, db, "Retired Tent", 20000, false)
	_, err := svc.GetProduct(context.Background(), product.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestSearchProducts(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db, nil)
	ctx := context.Background()

	createProduct(t, db, "Trail Boots", 12000, true)
	createProduct(t, db, "Trail Poles", 4500, true)
	createProduct(t, db, "City Umbrella", 2500, true)
	createProduct(t, db, "Trail Map (retired)", 900, false)

	result, err := svc.SearchProducts(ctx, "trail", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)
	assert.Len(t, result.Products, 2)

	all, err := svc.SearchProducts(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total, "empty query lists active products")
}

func TestSearchProductsUsesCache(t *testing.T) {
	db := setupCatalogTestDB(t)
	cache := newStubCache()
	svc := newCatalogService(t, db, cache)
	ctx := context.Background()

	createProduct(t, db, "Trail Boots", 12000, true)

	first, err := svc.SearchProducts(ctx, "trail", 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Total)
	assert.Equal(t, 1, cache.setCalls)

	// Second read is served from the cache even after the row disappears.
	require.NoError(t, db.Exec("DELETE FROM products").Error)
	second, err := svc.SearchProducts(ctx, "trail", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Total)
	assert.Equal(t, 1, cache.setCalls, "cache hit skips the write-back")
}

func TestSearchProductsCacheFailureDegrades(t *testing.T) {
	db := setupCatalogTestDB(t)
	cache := newStubCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	svc := newCatalogService(t, db, cache)

	createProduct(t, db, "Trail Boots", 12000, true)

	result, err := svc.SearchProducts(context.Background(), "trail", 1)
	require.NoError(t, err, "cache outages never fail the search")
	assert.Equal(t, int64(1), result.Total)
}
