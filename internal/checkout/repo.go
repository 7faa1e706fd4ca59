package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	"github.com/quenbyco/storefront-backend/pkg/types"
)

// Repository exposes persistence operations for checkout sessions.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a checkout session repository.
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

func (r *Repository) lockIfSupported(query *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

// Create inserts a new session row.
func (r *Repository) Create(ctx context.Context, session *models.CheckoutSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID returns the owner's session by id.
func (r *Repository) FindByID(ctx context.Context, identity types.Identity, id uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := ownerScope(r.db.WithContext(ctx), identity).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByIDForUpdate locks the owner's session row for the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, identity types.Identity, id uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.lockIfSupported(ownerScope(r.db.WithContext(ctx), identity)).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindOpenByOwner returns the owner's newest live session: non-terminal and
// not yet past its deadline.
func (r *Repository) FindOpenByOwner(ctx context.Context, identity types.Identity, now time.Time) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := ownerScope(r.db.WithContext(ctx), identity).
		Where("status IN ?", []string{
			enums.CheckoutStatusCollectingAddress.String(),
			enums.CheckoutStatusAwaitingPayment.String(),
		}).
		Where("expires_at > ?", now).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateGuarded applies updates only while the session is still in the
// expected status. The returned count is zero when the guard lost a race.
func (r *Repository) UpdateGuarded(ctx context.Context, id uuid.UUID, expected enums.CheckoutStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ?", id).
		Where("status = ?", expected).
		Updates(updates)
	return result.RowsAffected, result.Error
}
