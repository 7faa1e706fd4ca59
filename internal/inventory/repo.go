package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence operations for inventory levels.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) LevelRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// GetLevel loads the current stock level for a variant.
func (r *Repository) GetLevel(ctx context.Context, variantID uuid.UUID) (*models.InventoryLevel, error) {
	var level models.InventoryLevel
	err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		First(&level).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}

// GetLevelForUpdate loads the stock level holding a row lock for the duration
// of the surrounding transaction. Row locks are a postgres feature; the
// sqlite dialect used in tests serializes writers on its own.
func (r *Repository) GetLevelForUpdate(ctx context.Context, variantID uuid.UUID) (*models.InventoryLevel, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var level models.InventoryLevel
	err := query.Where("variant_id = ?", variantID).First(&level).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}

// SetLevel upserts the stock level for a variant.
func (r *Repository) SetLevel(ctx context.Context, variantID uuid.UUID, quantity int) error {
	level := models.InventoryLevel{VariantID: variantID, AvailableQuantity: quantity}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"available_quantity", "updated_at"}),
		}).
		Create(&level).Error
}
