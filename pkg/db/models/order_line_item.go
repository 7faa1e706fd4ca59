package models

import (
	"github.com/google/uuid"
)

// OrderLineItem is a frozen copy of a cart line at finalization time. Line
// totals are persisted here because orders never recompute.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	VariantID      uuid.UUID `gorm:"column:variant_id;type:uuid;not null" json:"variant_id"`
	ProductName    string    `gorm:"column:product_name;not null" json:"product_name"`
	VariantTitle   string    `gorm:"column:variant_title;not null" json:"variant_title"`
	Quantity       int       `gorm:"column:quantity;not null" json:"quantity"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null" json:"line_total_cents"`
	ImageURL       *string   `gorm:"column:image_url" json:"image_url,omitempty"`
}

// TableName overrides the default GORM table name.
func (OrderLineItem) TableName() string {
	return "order_line_items"
}
