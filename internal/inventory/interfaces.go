package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// LevelRepository defines the persistence surface required by the checker.
type LevelRepository interface {
	WithTx(tx *gorm.DB) LevelRepository
	GetLevel(ctx context.Context, variantID uuid.UUID) (*models.InventoryLevel, error)
	GetLevelForUpdate(ctx context.Context, variantID uuid.UUID) (*models.InventoryLevel, error)
}

// Checker answers point-in-time availability questions. Results must never
// be cached across cart mutations.
type Checker interface {
	Check(ctx context.Context, variantID uuid.UUID) (Availability, error)
	CheckQuantity(ctx context.Context, variantID uuid.UUID, quantity int) (Availability, error)
}
