package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quenbyco/storefront-backend/internal/cart"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/logger"
	"github.com/quenbyco/storefront-backend/pkg/outbox"
	"github.com/quenbyco/storefront-backend/pkg/types"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  checkout_session_id TEXT NOT NULL,
  user_id TEXT,
  session_id TEXT,
  currency TEXT NOT NULL DEFAULT 'USD',
  subtotal_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  billing_address TEXT,
  shipping_address TEXT,
  payment_intent_id TEXT,
  placed_at DATETIME NOT NULL,
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_checkout_session ON orders (checkout_session_id);
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  variant_title TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  image_url TEXT
);
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  session_id TEXT,
  product_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  product_name TEXT NOT NULL,
  variant_title TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  published_at DATETIME,
  created_at DATETIME
);`
	for _, stmt := range splitStatements(schema) {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func splitStatements(schema string) []string {
	var out []string
	start := 0
	for i := 0; i < len(schema); i++ {
		if schema[i] == ';' {
			out = append(out, schema[start:i+1])
			start = i + 1
		}
	}
	return out
}

func testOrderLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
}

func newTestOrderService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Items:  cart.NewRepository(db),
		Outbox: outbox.NewService(outbox.NewRepository(db), testOrderLogger()),
		Logger: testOrderLogger(),
	})
	require.NoError(t, err)
	return svc
}

func frozenSession(identity types.Identity) models.CheckoutSession {
	now := time.Now().UTC()
	intentID := "pay-" + uuid.NewString()
	return models.CheckoutSession{
		ID:              uuid.New(),
		UserID:          identity.UserID,
		SessionID:       identity.SessionID,
		Status:          enums.CheckoutStatusAwaitingPayment,
		Currency:        "USD",
		SubtotalCents:   4000,
		TaxCents:        320,
		ShippingCents:   499,
		TotalCents:      4819,
		ItemCount:       2,
		CartFingerprint: "fp",
		PaymentIntentID: &intentID,
		TotalsFrozenAt:  &now,
		ExpiresAt:       now.Add(30 * time.Minute),
	}
}

func purchasableSummary(productID, variantID uuid.UUID) cart.Summary {
	return cart.Summary{
		Items: []cart.ItemDTO{
			{
				ID:             uuid.New(),
				ProductID:      productID,
				VariantID:      variantID,
				ProductName:    "Trail Pack",
				VariantTitle:   "Blue",
				Quantity:       2,
				UnitPriceCents: 2000,
				LineTotalCents: 4000,
			},
		},
		ItemCount:     2,
		Currency:      "USD",
		SubtotalCents: 4000,
		TaxCents:      320,
		ShippingCents: 499,
		TotalCents:    4819,
		IsPurchasable: true,
	}
}

func seedCartLine(t *testing.T, db *gorm.DB, identity types.Identity, variantID uuid.UUID) {
	t.Helper()
	item := models.CartItem{
		ID:             uuid.New(),
		UserID:         identity.UserID,
		SessionID:      identity.SessionID,
		ProductID:      uuid.New(),
		VariantID:      variantID,
		Quantity:       2,
		ProductName:    "Trail Pack",
		VariantTitle:   "Blue",
		UnitPriceCents: 2000,
		Currency:       "USD",
	}
	require.NoError(t, db.Create(&item).Error)
}

func TestFinalizeCreatesOrderClearsCartAndEmitsEvent(t *testing.T) {
	db := setupOrderTestDB(t)
	svc := newTestOrderService(t, db)
	ctx := context.Background()
	identity := types.UserIdentity(uuid.New())

	session := frozenSession(identity)
	variantID := uuid.New()
	summary := purchasableSummary(uuid.New(), variantID)
	seedCartLine(t, db, identity, variantID)

	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		order, txErr = svc.Finalize(ctx, tx, session, summary)
		return txErr
	})
	require.NoError(t, err)

	assert.Equal(t, session.ID, order.CheckoutSessionID)
	assert.Equal(t, int64(4819), order.TotalCents)
	assert.Equal(t, session.PaymentIntentID, order.PaymentIntentID)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, int64(4000), order.LineItems[0].LineTotalCents)

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&cartCount).Error)
	assert.Zero(t, cartCount, "cart must be emptied on finalization")

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.OutboxEventOrderFinalized, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
	assert.Nil(t, events[0].PublishedAt)
}

func TestFinalizeTwiceIsSessionFinalized(t *testing.T) {
	db := setupOrderTestDB(t)
	svc := newTestOrderService(t, db)
	ctx := context.Background()
	identity := types.SessionIdentity(uuid.NewString())

	session := frozenSession(identity)
	summary := purchasableSummary(uuid.New(), uuid.New())

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Finalize(ctx, tx, session, summary)
		return txErr
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Finalize(ctx, tx, session, summary)
		return txErr
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSessionFinal))

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}

func TestFinalizeRollbackLeavesNothingBehind(t *testing.T) {
	db := setupOrderTestDB(t)
	svc := newTestOrderService(t, db)
	ctx := context.Background()
	identity := types.UserIdentity(uuid.New())

	session := frozenSession(identity)
	variantID := uuid.New()
	summary := purchasableSummary(uuid.New(), variantID)
	seedCartLine(t, db, identity, variantID)

	sentinel := pkgerrors.New(pkgerrors.CodeDependency, "payment record write failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, txErr := svc.Finalize(ctx, tx, session, summary); txErr != nil {
			return txErr
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var orderCount, cartCount, eventCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Count(&cartCount).Error)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&eventCount).Error)
	assert.Zero(t, orderCount)
	assert.Equal(t, int64(1), cartCount, "cart line survives the rollback")
	assert.Zero(t, eventCount)
}

func TestGetAndListScopedToOwner(t *testing.T) {
	db := setupOrderTestDB(t)
	svc := newTestOrderService(t, db)
	ctx := context.Background()
	owner := types.UserIdentity(uuid.New())
	stranger := types.UserIdentity(uuid.New())

	session := frozenSession(owner)
	summary := purchasableSummary(uuid.New(), uuid.New())

	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		order, txErr = svc.Finalize(ctx, tx, session, summary)
		return txErr
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.LineItems, 1)

	_, err = svc.Get(ctx, stranger, order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	mine, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.List(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
