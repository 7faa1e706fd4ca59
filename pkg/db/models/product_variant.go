package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is a purchasable option of a product. A nil PriceCents falls
// back to the parent product's base price.
type ProductVariant struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID           uuid.UUID `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	Title               string    `gorm:"column:title;not null" json:"title"`
	SKU                 string    `gorm:"column:sku;not null;uniqueIndex" json:"sku"`
	PriceCents          *int64    `gorm:"column:price_cents" json:"price_cents,omitempty"`
	CompareAtPriceCents *int64    `gorm:"column:compare_at_price_cents" json:"compare_at_price_cents,omitempty"`
	ImageURL            *string   `gorm:"column:image_url" json:"image_url,omitempty"`
	Position            int       `gorm:"column:position;not null;default:0" json:"position"`
	IsActive            bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default GORM table name.
func (ProductVariant) TableName() string {
	return "product_variants"
}

// EffectivePriceCents resolves the variant price, falling back to the product
// base price when the variant carries no override.
func (v ProductVariant) EffectivePriceCents(productBase int64) int64 {
	if v.PriceCents != nil {
		return *v.PriceCents
	}
	return productBase
}
