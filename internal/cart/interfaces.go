package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/types"
	"gorm.io/gorm"
)

// ItemRepository defines the persistence surface required by the cart
// service. Every query is scoped by the owning identity; a row belonging to
// another owner is indistinguishable from a missing row.
type ItemRepository interface {
	WithTx(tx *gorm.DB) ItemRepository
	ListByOwner(ctx context.Context, identity types.Identity) ([]models.CartItem, error)
	FindByID(ctx context.Context, identity types.Identity, itemID uuid.UUID) (*models.CartItem, error)
	FindByVariantForUpdate(ctx context.Context, identity types.Identity, variantID uuid.UUID) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	UpdateQuantity(ctx context.Context, identity types.Identity, itemID uuid.UUID, quantity int) (int64, error)
	Delete(ctx context.Context, identity types.Identity, itemID uuid.UUID) (int64, error)
	DeleteByOwner(ctx context.Context, identity types.Identity) error
}
