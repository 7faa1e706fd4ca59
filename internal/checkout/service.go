package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quenbyco/storefront-backend/internal/address"
	"github.com/quenbyco/storefront-backend/internal/cart"
	"github.com/quenbyco/storefront-backend/internal/orders"
	"github.com/quenbyco/storefront-backend/internal/payments"
	"github.com/quenbyco/storefront-backend/pkg/config"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/logger"
	"github.com/quenbyco/storefront-backend/pkg/metrics"
	"github.com/quenbyco/storefront-backend/pkg/outbox"
	"github.com/quenbyco/storefront-backend/pkg/types"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Deduper is the redis surface used for short-lived creation dedupe. A nil
// deduper disables the window; the session reuse check still applies.
type Deduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CheckoutDedupeKey(ownerKey, fingerprint string) string
}

// SubmitAddressInput carries the address step payload. Shipping mirrors
// billing when nil. PaymentSourceID is the tokenized payment method the
// intent will charge.
type SubmitAddressInput struct {
	Billing         address.Input  `json:"billing"`
	Shipping        *address.Input `json:"shipping,omitempty"`
	PaymentSourceID string         `json:"payment_source_id"`
}

// ConfirmResult pairs the confirmed session with the order it produced.
type ConfirmResult struct {
	Session models.CheckoutSession `json:"session"`
	Order   models.Order           `json:"order"`
}

// Service drives the checkout state machine. The cart stays intact until a
// session reaches confirmed; every earlier exit leaves it untouched.
type Service interface {
	Start(ctx context.Context, identity types.Identity) (models.CheckoutSession, error)
	SubmitAddress(ctx context.Context, identity types.Identity, sessionID uuid.UUID, in SubmitAddressInput) (models.CheckoutSession, error)
	Confirm(ctx context.Context, identity types.Identity, sessionID uuid.UUID) (ConfirmResult, error)
	Get(ctx context.Context, identity types.Identity, sessionID uuid.UUID) (models.CheckoutSession, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	DB       TxRunner
	Sessions *Repository
	Cart     cart.Service
	Payments payments.Provider
	Orders   orders.Service
	Dedupe   Deduper
	Outbox   *outbox.Service
	Logger   *logger.Logger
	Metrics  *metrics.StorefrontMetrics
	Config   config.CheckoutConfig
}

type service struct {
	db       TxRunner
	sessions *Repository
	cart     cart.Service
	payments payments.Provider
	orders   orders.Service
	dedupe   Deduper
	outbox   *outbox.Service
	logg     *logger.Logger
	metrics  *metrics.StorefrontMetrics
	cfg      config.CheckoutConfig
}

// NewService builds a checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session repo is required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart service is required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment provider is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order service is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	cfg := params.Config
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = 2 * time.Minute
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 5 * time.Second
	}
	return &service{
		db:       params.DB,
		sessions: params.Sessions,
		cart:     params.Cart,
		payments: params.Payments,
		orders:   params.Orders,
		dedupe:   params.Dedupe,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      cfg,
	}, nil
}

// Start opens a checkout session for the identity's cart. A live session is
// reused as-is; retried calls inside the dedupe window never mint a second
// session for the same cart contents.
func (s *service) Start(ctx context.Context, identity types.Identity) (models.CheckoutSession, error) {
	if err := identity.Validate(); err != nil {
		return models.CheckoutSession{}, err
	}
	now := time.Now().UTC()

	existing, err := s.findOpen(ctx, identity, now)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	summary, err := s.cart.GetSummary(ctx, identity)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if len(summary.Items) == 0 {
		return models.CheckoutSession{}, pkgerrors.New(pkgerrors.CodeValidation, "cannot start checkout with an empty cart")
	}

	fingerprint := Fingerprint(summary.Items)
	if s.dedupe != nil {
		key := s.dedupe.CheckoutDedupeKey(identity.Key(), fingerprint)
		acquired, dedupeErr := s.dedupe.SetNX(ctx, key, "1", s.cfg.DedupeWindow)
		if dedupeErr != nil {
			// Dedupe is best effort; the open-session reuse above is the
			// hard guard.
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": dedupeErr.Error()}),
				"checkout dedupe unavailable")
		} else if !acquired {
			existing, err = s.findOpen(ctx, identity, now)
			if err != nil {
				return models.CheckoutSession{}, err
			}
			if existing != nil {
				return *existing, nil
			}
			return models.CheckoutSession{}, pkgerrors.New(pkgerrors.CodeConflict, "checkout session creation already in progress")
		}
	}

	session := models.CheckoutSession{
		UserID:          identity.UserID,
		SessionID:       identity.SessionID,
		Status:          enums.CheckoutStatusCollectingAddress,
		Currency:        summary.Currency,
		SubtotalCents:   summary.SubtotalCents,
		TaxCents:        summary.TaxCents,
		ShippingCents:   summary.ShippingCents,
		TotalCents:      summary.TotalCents,
		ItemCount:       summary.ItemCount,
		CartFingerprint: fingerprint,
		ExpiresAt:       now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, &session); err != nil {
		s.metrics.IncCheckoutTransition(enums.CheckoutStatusCollectingAddress.String(), "error")
		return models.CheckoutSession{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	s.metrics.IncCheckoutTransition(enums.CheckoutStatusCollectingAddress.String(), "success")
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"checkout_session_id": session.ID.String(),
		"owner":               identity.Key(),
		"total_cents":         session.TotalCents,
	})
	s.logg.Info(logCtx, "checkout session started")
	return session, nil
}

// SubmitAddress validates the addresses and the cart, freezes the totals,
// and requests a payment intent for exactly the frozen total. Any failure
// keeps the session on the address step.
func (s *service) SubmitAddress(ctx context.Context, identity types.Identity, sessionID uuid.UUID, in SubmitAddressInput) (models.CheckoutSession, error) {
	start := time.Now()
	if err := identity.Validate(); err != nil {
		return models.CheckoutSession{}, err
	}
	if err := address.ValidateInput(in.Billing); err != nil {
		return models.CheckoutSession{}, err
	}
	if in.Shipping != nil {
		if err := address.ValidateInput(*in.Shipping); err != nil {
			return models.CheckoutSession{}, err
		}
	}
	if in.PaymentSourceID == "" {
		return models.CheckoutSession{}, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}

	session, err := s.load(ctx, identity, sessionID)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	now := time.Now().UTC()
	if session.IsExpired(now) {
		s.expire(ctx, session)
		return models.CheckoutSession{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session expired")
	}
	switch session.Status {
	case enums.CheckoutStatusConfirmed:
		return models.CheckoutSession{}, pkgerrors.New(pkgerrors.CodeSessionFinal, "session already finalized")
	case enums.CheckoutStatusExpired:
		return models.CheckoutSession{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session expired")
	case enums.CheckoutStatusAwaitingPayment:
		// Retried submission after a timeout: totals are already frozen.
		return *session, nil
	}

	report, err := s.cart.Validate(ctx, identity)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if !report.Valid {
		return models.CheckoutSession{}, pkgerrors.New(pkgerrors.CodeValidation, "cart failed validation").WithDetails(report)
	}

	summary, err := s.cart.GetSummary(ctx, identity)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if len(summary.Items) == 0 {
		return models.CheckoutSession{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	fingerprint := Fingerprint(summary.Items)

	billingSnap := address.SnapshotInput(in.Billing)
	shippingSnap := billingSnap
	if in.Shipping != nil {
		shippingSnap = address.SnapshotInput(*in.Shipping)
	}

	intentCtx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()
	intent, err := s.payments.CreateIntent(intentCtx, summary.TotalCents, summary.Currency, map[string]string{
		payments.MetadataSessionID: session.ID.String(),
		payments.MetadataSourceID:  in.PaymentSourceID,
	})
	if err != nil {
		s.metrics.IncCheckoutTransition(enums.CheckoutStatusAwaitingPayment.String(), "error")
		return models.CheckoutSession{}, err
	}

	billingJSON, err := json.Marshal(billingSnap)
	if err != nil {
		return models.CheckoutSession{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode billing address")
	}
	shippingJSON, err := json.Marshal(shippingSnap)
	if err != nil {
		return models.CheckoutSession{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode shipping address")
	}

	rows, err := s.sessions.UpdateGuarded(ctx, session.ID, enums.CheckoutStatusCollectingAddress, map[string]any{
		"status":            enums.CheckoutStatusAwaitingPayment.String(),
		"currency":          summary.Currency,
		"subtotal_cents":    summary.SubtotalCents,
		"tax_cents":         summary.TaxCents,
		"shipping_cents":    summary.ShippingCents,
		"total_cents":       summary.TotalCents,
		"item_count":        summary.ItemCount,
		"cart_fingerprint":  fingerprint,
		"billing_address":   string(billingJSON),
		"shipping_address":  string(shippingJSON),
		"payment_intent_id": intent.ID,
		"totals_frozen_at":  now,
	})
	if err != nil {
		s.metrics.IncCheckoutTransition(enums.CheckoutStatusAwaitingPayment.String(), "error")
		return models.CheckoutSession{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "freeze checkout totals")
	}
	if rows == 0 {
		// Lost a race with a concurrent submit or expiry; report the
		// session's current truth.
		current, loadErr := s.load(ctx, identity, sessionID)
		if loadErr != nil {
			return models.CheckoutSession{}, loadErr
		}
		if current.Status == enums.CheckoutStatusAwaitingPayment {
			return *current, nil
		}
		return models.CheckoutSession{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is not collecting an address")
	}

	updated, err := s.load(ctx, identity, sessionID)
	if err != nil {
		return models.CheckoutSession{}, err
	}

	s.metrics.IncCheckoutTransition(enums.CheckoutStatusAwaitingPayment.String(), "success")
	s.metrics.ObserveCheckoutStep("submit_address", time.Since(start))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"checkout_session_id": updated.ID.String(),
		"total_cents":         updated.TotalCents,
	})
	s.logg.Info(logCtx, "checkout totals frozen")
	return *updated, nil
}

// Confirm settles the payment and finalizes the order exactly once. A
// payment failure leaves the session awaiting payment so the buyer can
// retry without re-entering addresses.
func (s *service) Confirm(ctx context.Context, identity types.Identity, sessionID uuid.UUID) (ConfirmResult, error) {
	start := time.Now()
	if err := identity.Validate(); err != nil {
		return ConfirmResult{}, err
	}

	session, err := s.load(ctx, identity, sessionID)
	if err != nil {
		return ConfirmResult{}, err
	}
	now := time.Now().UTC()
	if session.IsExpired(now) {
		s.expire(ctx, session)
		return ConfirmResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session expired")
	}
	switch session.Status {
	case enums.CheckoutStatusConfirmed:
		return ConfirmResult{}, pkgerrors.New(pkgerrors.CodeSessionFinal, "session already finalized")
	case enums.CheckoutStatusExpired:
		return ConfirmResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session expired")
	case enums.CheckoutStatusCollectingAddress:
		return ConfirmResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "address has not been submitted")
	}
	if session.PaymentIntentID == nil {
		return ConfirmResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "session has no payment intent")
	}

	summary, err := s.cart.GetSummary(ctx, identity)
	if err != nil {
		return ConfirmResult{}, err
	}
	if Fingerprint(summary.Items) != session.CartFingerprint {
		return ConfirmResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cart changed since totals were frozen")
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()
	if _, err := s.payments.Confirm(confirmCtx, *session.PaymentIntentID); err != nil {
		s.metrics.IncCheckoutTransition(enums.CheckoutStatusConfirmed.String(), "error")
		return ConfirmResult{}, err
	}

	var order models.Order
	var confirmed models.CheckoutSession
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repoTx := s.sessions.WithTx(tx)
		locked, txErr := repoTx.FindByIDForUpdate(ctx, identity, sessionID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, txErr, "checkout session not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "lock checkout session")
		}
		if locked.Status == enums.CheckoutStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeSessionFinal, "session already finalized")
		}
		if locked.Status != enums.CheckoutStatusAwaitingPayment {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is not awaiting payment")
		}

		order, txErr = s.orders.Finalize(ctx, tx, *locked, summary)
		if txErr != nil {
			return txErr
		}

		rows, txErr := repoTx.UpdateGuarded(ctx, locked.ID, enums.CheckoutStatusAwaitingPayment, map[string]any{
			"status":       enums.CheckoutStatusConfirmed.String(),
			"confirmed_at": now,
		})
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "confirm checkout session")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeSessionFinal, "session already finalized")
		}
		confirmed = *locked
		confirmed.Status = enums.CheckoutStatusConfirmed
		confirmed.ConfirmedAt = &now
		return nil
	})
	if err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeSessionFinal) {
			s.metrics.IncCheckoutTransition(enums.CheckoutStatusConfirmed.String(), "error")
		}
		return ConfirmResult{}, err
	}

	s.metrics.IncCheckoutTransition(enums.CheckoutStatusConfirmed.String(), "success")
	s.metrics.ObserveCheckoutStep("confirm", time.Since(start))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"checkout_session_id": confirmed.ID.String(),
		"order_id":            order.ID.String(),
	})
	s.logg.Info(logCtx, "checkout confirmed")
	return ConfirmResult{Session: confirmed, Order: order}, nil
}

// Get returns the session, lazily expiring it when the deadline has passed.
func (s *service) Get(ctx context.Context, identity types.Identity, sessionID uuid.UUID) (models.CheckoutSession, error) {
	if err := identity.Validate(); err != nil {
		return models.CheckoutSession{}, err
	}
	session, err := s.load(ctx, identity, sessionID)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if session.IsExpired(time.Now().UTC()) {
		s.expire(ctx, session)
		session.Status = enums.CheckoutStatusExpired
	}
	return *session, nil
}

func (s *service) load(ctx context.Context, identity types.Identity, sessionID uuid.UUID) (*models.CheckoutSession, error) {
	session, err := s.sessions.FindByID(ctx, identity, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	return session, nil
}

func (s *service) findOpen(ctx context.Context, identity types.Identity, now time.Time) (*models.CheckoutSession, error) {
	session, err := s.sessions.FindOpenByOwner(ctx, identity, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open checkout session")
	}
	return session, nil
}

// expire transitions a past-deadline session to expired and records the
// event. Best effort: the read path reports expired regardless.
func (s *service) expire(ctx context.Context, session *models.CheckoutSession) {
	if session.Status.IsTerminal() {
		return
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, txErr := s.sessions.WithTx(tx).UpdateGuarded(ctx, session.ID, session.Status, map[string]any{
			"status": enums.CheckoutStatusExpired.String(),
		})
		if txErr != nil {
			return txErr
		}
		if rows == 0 || s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:   enums.OutboxEventCheckoutExpired,
			AggregateID: session.ID,
			Owner:       ownerRef(types.Identity{UserID: session.UserID, SessionID: session.SessionID}),
			Data: map[string]any{
				"checkout_session_id": session.ID.String(),
				"expired_at":          time.Now().UTC(),
			},
		})
	})
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"checkout_session_id": session.ID.String(),
			"error":               err.Error(),
		}), "expiring checkout session failed")
		return
	}
	s.metrics.IncCheckoutTransition(enums.CheckoutStatusExpired.String(), "success")
}

func ownerRef(identity types.Identity) *outbox.OwnerRef {
	ref := &outbox.OwnerRef{SessionID: identity.SessionID}
	if identity.UserID != nil {
		userID := identity.UserID.String()
		ref.UserID = &userID
	}
	return ref
}
