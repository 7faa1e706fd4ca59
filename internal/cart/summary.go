package cart

import (
	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/internal/pricing"
	"github.com/quenbyco/storefront-backend/pkg/config"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ItemDTO is the API shape of a cart line with live stock flags.
type ItemDTO struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"product_id"`
	VariantID         uuid.UUID `json:"variant_id"`
	ProductName       string    `json:"product_name"`
	VariantTitle      string    `json:"variant_title"`
	Quantity          int       `json:"quantity"`
	UnitPriceCents    int64     `json:"unit_price_cents"`
	UnitPrice         string    `json:"unit_price"`
	LineTotalCents    int64     `json:"line_total_cents"`
	LineTotal         string    `json:"line_total"`
	ImageURL          *string   `json:"image_url,omitempty"`
	IsLowStock        bool      `json:"is_low_stock"`
	IsOutOfStock      bool      `json:"is_out_of_stock"`
	AvailableQuantity int       `json:"available_quantity"`
}

// Summary is the single source of truth for what the cart costs and whether
// it is purchasable. It is computed fresh on every read, never persisted.
type Summary struct {
	Items          []ItemDTO `json:"items"`
	ItemCount      int       `json:"item_count"`
	Currency       string    `json:"currency"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	TaxCents       int64     `json:"tax_cents"`
	ShippingCents  int64     `json:"shipping_cents"`
	TotalCents     int64     `json:"total_cents"`
	Subtotal       string    `json:"subtotal"`
	Tax            string    `json:"tax"`
	Shipping       string    `json:"shipping"`
	Total          string    `json:"total"`
	HasLowStock    bool      `json:"has_low_stock"`
	HasOutOfStock  bool      `json:"has_out_of_stock"`
	IsPurchasable  bool      `json:"is_purchasable"`
}

// buildSummary assembles a summary from decorated items. Tax rounds
// half-up on the subtotal; shipping is tiered on the subtotal alone.
func buildSummary(items []ItemDTO, cfg config.CartConfig) Summary {
	currency := cfg.Currency
	if currency == "" {
		currency = "USD"
	}

	var subtotal int64
	itemCount := 0
	hasLow, hasOut := false, false
	for _, item := range items {
		subtotal += item.LineTotalCents
		itemCount += item.Quantity
		hasLow = hasLow || item.IsLowStock
		hasOut = hasOut || item.IsOutOfStock
	}

	tax := taxFor(subtotal, cfg.TaxRate)
	shipping := shippingFor(subtotal, len(items), cfg)
	total := subtotal + tax + shipping

	return Summary{
		Items:         items,
		ItemCount:     itemCount,
		Currency:      currency,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    total,
		Subtotal:      pricing.FormatAmount(subtotal, currency),
		Tax:           pricing.FormatAmount(tax, currency),
		Shipping:      pricing.FormatAmount(shipping, currency),
		Total:         pricing.FormatAmount(total, currency),
		HasLowStock:   hasLow,
		HasOutOfStock: hasOut,
		IsPurchasable: len(items) > 0 && !hasOut,
	}
}

func taxFor(subtotalCents int64, rate float64) int64 {
	if subtotalCents <= 0 || rate <= 0 {
		return 0
	}
	return decimal.NewFromInt(subtotalCents).
		Mul(decimal.NewFromFloat(rate)).
		Round(0).
		IntPart()
}

func shippingFor(subtotalCents int64, lineCount int, cfg config.CartConfig) int64 {
	if lineCount == 0 || subtotalCents <= 0 {
		return 0
	}
	switch {
	case subtotalCents >= cfg.FreeShippingThresholdCents:
		return 0
	case subtotalCents >= cfg.ReducedShippingFloorCents:
		return cfg.ReducedShippingFeeCents
	default:
		return cfg.StandardShippingFeeCents
	}
}

func itemImage(variant *models.ProductVariant, product *models.Product) *string {
	if variant != nil && variant.ImageURL != nil && *variant.ImageURL != "" {
		return variant.ImageURL
	}
	if product != nil && len(product.Images) > 0 {
		img := product.Images[0]
		return &img
	}
	return nil
}
