package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line in a cart. Exactly one of UserID and SessionID is set;
// the pair (owner, variant) is unique so repeated adds collapse into a single
// line. Product name, variant title, and unit price are denormalized at add
// time so the cart renders without catalog joins; line totals are always
// derived, never stored.
type CartItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         *uuid.UUID `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	SessionID      *string    `gorm:"column:session_id;index" json:"session_id,omitempty"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	VariantID      uuid.UUID  `gorm:"column:variant_id;type:uuid;not null" json:"variant_id"`
	Quantity       int        `gorm:"column:quantity;not null" json:"quantity"`
	ProductName    string     `gorm:"column:product_name;not null" json:"product_name"`
	VariantTitle   string     `gorm:"column:variant_title;not null" json:"variant_title"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	Currency       string     `gorm:"column:currency;not null;default:USD" json:"currency"`
	ImageURL       *string    `gorm:"column:image_url" json:"image_url,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default GORM table name.
func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotalCents derives the extended price for the line.
func (c CartItem) LineTotalCents() int64 {
	return c.UnitPriceCents * int64(c.Quantity)
}
