package address

import (
	"context"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	"github.com/quenbyco/storefront-backend/pkg/types"
	"gorm.io/gorm"
)

// Repository exposes persistence operations for the address book.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an address repository bound to the provided DB.
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

// Create inserts a new address row.
func (r *Repository) Create(ctx context.Context, addr *models.Address) error {
	if addr.ID == uuid.Nil {
		addr.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(addr).Error
}

// ListByOwner returns the owner's addresses, defaults first.
func (r *Repository) ListByOwner(ctx context.Context, identity types.Identity) ([]models.Address, error) {
	var rows []models.Address
	err := ownerScope(r.db.WithContext(ctx), identity).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID returns the owner's address by id.
func (r *Repository) FindByID(ctx context.Context, identity types.Identity, id uuid.UUID) (*models.Address, error) {
	var addr models.Address
	err := ownerScope(r.db.WithContext(ctx), identity).
		Where("id = ?", id).
		First(&addr).Error
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// FindDefault returns the owner's default address covering the role, if any.
func (r *Repository) FindDefault(ctx context.Context, identity types.Identity, role enums.AddressType) (*models.Address, error) {
	var addr models.Address
	err := ownerScope(r.db.WithContext(ctx), identity).
		Where("is_default = ?", true).
		Where("type IN ?", []string{role.String(), enums.AddressTypeBoth.String()}).
		Order("created_at DESC").
		First(&addr).Error
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// ClearDefault unsets the default flag on the owner's rows of the given type.
func (r *Repository) ClearDefault(ctx context.Context, identity types.Identity, addrType enums.AddressType) error {
	return ownerScope(r.db.WithContext(ctx).Model(&models.Address{}), identity).
		Where("type = ?", addrType).
		Where("is_default = ?", true).
		Update("is_default", false).Error
}

// Delete removes the owner's address, reporting rows touched.
func (r *Repository) Delete(ctx context.Context, identity types.Identity, id uuid.UUID) (int64, error) {
	result := ownerScope(r.db.WithContext(ctx), identity).
		Where("id = ?", id).
		Delete(&models.Address{})
	return result.RowsAffected, result.Error
}
