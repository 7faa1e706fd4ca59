package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ProductRepository defines the persistence surface required by the catalog
// service.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindVariantWithProduct(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, *models.Product, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]models.Product, int64, error)
}

// SearchCache is the read-through cache used by product search. The redis
// client satisfies it; a nil cache disables caching.
type SearchCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}
