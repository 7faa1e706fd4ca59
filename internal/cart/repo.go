package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence operations for cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ItemRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ownerScope applies the identity predicate. Ownership lives in the WHERE
// clause so cross-identity access can never match a row.
func ownerScope(query *gorm.DB, identity types.Identity) *gorm.DB {
	if identity.UserID != nil {
		return query.Where("user_id = ?", *identity.UserID)
	}
	return query.Where("session_id = ?", *identity.SessionID)
}

// ListByOwner returns the owner's cart lines in insertion order.
func (r *Repository) ListByOwner(ctx context.Context, identity types.Identity) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := ownerScope(r.db.WithContext(ctx), identity).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID returns the owner's cart line by id.
func (r *Repository) FindByID(ctx context.Context, identity types.Identity, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := ownerScope(r.db.WithContext(ctx), identity).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByVariantForUpdate loads the owner's line for a variant under a row
// lock so concurrent adds serialize on the same line. Row locks are a
// postgres feature; the unique (owner, variant) index backstops duplicate
// lines on other dialects.
func (r *Repository) FindByVariantForUpdate(ctx context.Context, identity types.Identity, variantID uuid.UUID) (*models.CartItem, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.CartItem
	err := ownerScope(query, identity).
		Where("variant_id = ?", variantID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new cart line.
func (r *Repository) Create(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateQuantity sets the quantity on the owner's line, returning the number
// of rows touched.
func (r *Repository) UpdateQuantity(ctx context.Context, identity types.Identity, itemID uuid.UUID, quantity int) (int64, error) {
	result := ownerScope(r.db.WithContext(ctx).Model(&models.CartItem{}), identity).
		Where("id = ?", itemID).
		Update("quantity", quantity)
	return result.RowsAffected, result.Error
}

// Delete removes the owner's line, returning the number of rows touched so
// callers can distinguish not-found.
func (r *Repository) Delete(ctx context.Context, identity types.Identity, itemID uuid.UUID) (int64, error) {
	result := ownerScope(r.db.WithContext(ctx), identity).
		Where("id = ?", itemID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// DeleteByOwner clears every line belonging to the identity.
func (r *Repository) DeleteByOwner(ctx context.Context, identity types.Identity) error {
	return ownerScope(r.db.WithContext(ctx), identity).
		Delete(&models.CartItem{}).Error
}
