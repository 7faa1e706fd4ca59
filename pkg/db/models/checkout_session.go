package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	"github.com/quenbyco/storefront-backend/pkg/types"
)

// CheckoutSession is the short-lived state machine between cart and order.
// Totals are computed at creation and frozen once the session reaches
// awaiting_payment; address snapshots are denormalized JSON so later edits to
// the address book cannot alter an in-flight checkout.
type CheckoutSession struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          *uuid.UUID            `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	SessionID       *string               `gorm:"column:session_id;index" json:"session_id,omitempty"`
	Status          enums.CheckoutStatus  `gorm:"column:status;not null" json:"status"`
	Currency        string                `gorm:"column:currency;not null;default:USD" json:"currency"`
	SubtotalCents   int64                 `gorm:"column:subtotal_cents;not null" json:"subtotal_cents"`
	TaxCents        int64                 `gorm:"column:tax_cents;not null" json:"tax_cents"`
	ShippingCents   int64                 `gorm:"column:shipping_cents;not null" json:"shipping_cents"`
	TotalCents      int64                 `gorm:"column:total_cents;not null" json:"total_cents"`
	ItemCount       int                   `gorm:"column:item_count;not null" json:"item_count"`
	CartFingerprint string                `gorm:"column:cart_fingerprint;not null" json:"cart_fingerprint"`
	BillingAddress  *types.AddressSnapshot `gorm:"column:billing_address;type:jsonb;serializer:json" json:"billing_address,omitempty"`
	ShippingAddress *types.AddressSnapshot `gorm:"column:shipping_address;type:jsonb;serializer:json" json:"shipping_address,omitempty"`
	PaymentIntentID *string               `gorm:"column:payment_intent_id" json:"payment_intent_id,omitempty"`
	TotalsFrozenAt  *time.Time            `gorm:"column:totals_frozen_at" json:"totals_frozen_at,omitempty"`
	ExpiresAt       time.Time             `gorm:"column:expires_at;not null" json:"expires_at"`
	ConfirmedAt     *time.Time            `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default GORM table name.
func (CheckoutSession) TableName() string {
	return "checkout_sessions"
}

// IsExpired reports whether the session has passed its deadline at the given
// instant. Terminal sessions never re-expire.
func (s CheckoutSession) IsExpired(now time.Time) bool {
	if s.Status.IsTerminal() {
		return false
	}
	return now.After(s.ExpiresAt)
}

// TotalsFrozen reports whether the totals snapshot is locked.
func (s CheckoutSession) TotalsFrozen() bool {
	return s.TotalsFrozenAt != nil
}
