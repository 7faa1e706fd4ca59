package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/types"
)

// Repository exposes persistence operations for orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func ownerScope(query *gorm.DB, identity types.Identity) *gorm.DB {
	if identity.UserID != nil {
		return query.Where("user_id = ?", *identity.UserID)
	}
	return query.Where("session_id = ?", *identity.SessionID)
}

// Create inserts the order row. The unique checkout_session_id index
// rejects a second order for the same session.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("LineItems").Create(order).Error
}

// CreateLineItems inserts the frozen line copies.
func (r *Repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// FindByID returns the owner's order with its line items.
func (r *Repository) FindByID(ctx context.Context, identity types.Identity, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := ownerScope(r.db.WithContext(ctx), identity).
		Preload("LineItems").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *Repository) ListByOwner(ctx context.Context, identity types.Identity) ([]models.Order, error) {
	var rows []models.Order
	err := ownerScope(r.db.WithContext(ctx), identity).
		Preload("LineItems").
		Order("placed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
