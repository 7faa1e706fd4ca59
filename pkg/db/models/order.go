package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/types"
)

// Order is the immutable record produced when a checkout session is
// confirmed. The unique checkout_session_id guarantees at most one order per
// session regardless of how many confirmation attempts race.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CheckoutSessionID uuid.UUID             `gorm:"column:checkout_session_id;type:uuid;not null;uniqueIndex:idx_orders_checkout_session" json:"checkout_session_id"`
	UserID            *uuid.UUID            `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	SessionID         *string               `gorm:"column:session_id;index" json:"session_id,omitempty"`
	Currency          string                `gorm:"column:currency;not null;default:USD" json:"currency"`
	SubtotalCents     int64                 `gorm:"column:subtotal_cents;not null" json:"subtotal_cents"`
	TaxCents          int64                 `gorm:"column:tax_cents;not null" json:"tax_cents"`
	ShippingCents     int64                 `gorm:"column:shipping_cents;not null" json:"shipping_cents"`
	TotalCents        int64                 `gorm:"column:total_cents;not null" json:"total_cents"`
	BillingAddress    *types.AddressSnapshot `gorm:"column:billing_address;type:jsonb;serializer:json" json:"billing_address,omitempty"`
	ShippingAddress   *types.AddressSnapshot `gorm:"column:shipping_address;type:jsonb;serializer:json" json:"shipping_address,omitempty"`
	PaymentIntentID   *string               `gorm:"column:payment_intent_id" json:"payment_intent_id,omitempty"`
	PlacedAt          time.Time             `gorm:"column:placed_at;not null" json:"placed_at"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderID;references:ID" json:"line_items,omitempty"`
}

// TableName overrides the default GORM table name.
func (Order) TableName() string {
	return "orders"
}
