package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quenbyco/storefront-backend/internal/cart"
	"github.com/quenbyco/storefront-backend/pkg/db"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/logger"
	"github.com/quenbyco/storefront-backend/pkg/metrics"
	"github.com/quenbyco/storefront-backend/pkg/outbox"
	"github.com/quenbyco/storefront-backend/pkg/types"
)

const sessionUniqueConstraint = "idx_orders_checkout_session"

// FinalizedEvent is the payload published when an order is placed.
type FinalizedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	CheckoutSessionID uuid.UUID `json:"checkout_session_id"`
	TotalCents        int64     `json:"total_cents"`
	Currency          string    `json:"currency"`
	ItemCount         int       `json:"item_count"`
}

// Service turns confirmed checkout sessions into immutable orders.
type Service interface {
	// Finalize runs inside the caller's transaction so the order insert,
	// line copies, cart clear, and outbox emit commit together.
	Finalize(ctx context.Context, tx *gorm.DB, session models.CheckoutSession, summary cart.Summary) (models.Order, error)
	Get(ctx context.Context, identity types.Identity, orderID uuid.UUID) (models.Order, error)
	List(ctx context.Context, identity types.Identity) ([]models.Order, error)
}

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Repo    *Repository
	Items   cart.ItemRepository
	Outbox  *outbox.Service
	Logger  *logger.Logger
	Metrics *metrics.StorefrontMetrics
}

type service struct {
	repo    *Repository
	items   cart.ItemRepository
	outbox  *outbox.Service
	logger  *logger.Logger
	metrics *metrics.StorefrontMetrics
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	}
	if params.Items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item repo is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:    params.Repo,
		items:   params.Items,
		outbox:  params.Outbox,
		logger:  params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Finalize places the order for a confirmed session. The unique session
// index makes this exactly-once: a racing duplicate insert surfaces as
// SESSION_ALREADY_FINALIZED instead of a second order.
func (s *service) Finalize(ctx context.Context, tx *gorm.DB, session models.CheckoutSession, summary cart.Summary) (models.Order, error) {
	if tx == nil {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "transaction is required")
	}
	identity := types.Identity{UserID: session.UserID, SessionID: session.SessionID}
	if err := identity.Validate(); err != nil {
		return models.Order{}, err
	}

	now := time.Now().UTC()
	order := models.Order{
		CheckoutSessionID: session.ID,
		UserID:            session.UserID,
		SessionID:         session.SessionID,
		Currency:          session.Currency,
		SubtotalCents:     session.SubtotalCents,
		TaxCents:          session.TaxCents,
		ShippingCents:     session.ShippingCents,
		TotalCents:        session.TotalCents,
		BillingAddress:    session.BillingAddress,
		ShippingAddress:   session.ShippingAddress,
		PaymentIntentID:   session.PaymentIntentID,
		PlacedAt:          now,
	}

	repoTx := s.repo.WithTx(tx)
	if err := repoTx.Create(ctx, &order); err != nil {
		if db.IsUniqueViolation(err, sessionUniqueConstraint) {
			return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeSessionFinal, err, "session already finalized")
		}
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	lines := make([]models.OrderLineItem, 0, len(summary.Items))
	for _, item := range summary.Items {
		lines = append(lines, models.OrderLineItem{
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ProductName:    item.ProductName,
			VariantTitle:   item.VariantTitle,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
			ImageURL:       item.ImageURL,
		})
	}
	if err := repoTx.CreateLineItems(ctx, lines); err != nil {
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "copy line items")
	}
	order.LineItems = lines

	if err := s.items.WithTx(tx).DeleteByOwner(ctx, identity); err != nil {
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}

	event := outbox.DomainEvent{
		EventType:   enums.OutboxEventOrderFinalized,
		AggregateID: order.ID,
		Owner:       ownerRef(identity),
		Data: FinalizedEvent{
			OrderID:           order.ID,
			CheckoutSessionID: session.ID,
			TotalCents:        order.TotalCents,
			Currency:          order.Currency,
			ItemCount:         summary.ItemCount,
		},
		OccurredAt: now,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
	}

	s.metrics.IncOrderFinalized()
	logCtx := s.logger.WithFields(ctx, map[string]any{
		"order_id":            order.ID.String(),
		"checkout_session_id": session.ID.String(),
		"total_cents":         order.TotalCents,
	})
	s.logger.Info(logCtx, "order finalized")
	return order, nil
}

// Get returns one of the identity's orders.
func (s *service) Get(ctx context.Context, identity types.Identity, orderID uuid.UUID) (models.Order, error) {
	if err := identity.Validate(); err != nil {
		return models.Order{}, err
	}
	order, err := s.repo.FindByID(ctx, identity, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return *order, nil
}

// List returns the identity's order history, newest first.
func (s *service) List(ctx context.Context, identity types.Identity) ([]models.Order, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOwner(ctx, identity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func ownerRef(identity types.Identity) *outbox.OwnerRef {
	ref := &outbox.OwnerRef{SessionID: identity.SessionID}
	if identity.UserID != nil {
		userID := identity.UserID.String()
		ref.UserID = &userID
	}
	return ref
}
