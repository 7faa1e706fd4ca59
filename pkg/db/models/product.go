package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is the sellable catalog entry. Prices live in integer minor units;
// variant rows may override the base price.
type Product struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title               string         `gorm:"column:title;not null" json:"title"`
	Description         *string        `gorm:"column:description" json:"description,omitempty"`
	Currency            string         `gorm:"column:currency;not null;default:USD" json:"currency"`
	BasePriceCents      int64          `gorm:"column:base_price_cents;not null" json:"base_price_cents"`
	CompareAtPriceCents *int64         `gorm:"column:compare_at_price_cents" json:"compare_at_price_cents,omitempty"`
	Images              pq.StringArray `gorm:"column:images;type:text[]" json:"images"`
	IsActive            bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID;references:ID" json:"variants,omitempty"`
}

// TableName overrides the default GORM table name.
func (Product) TableName() string {
	return "products"
}
