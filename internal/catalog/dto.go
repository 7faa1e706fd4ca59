package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/internal/pricing"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
)

// VariantDTO is the API shape of a purchasable variant.
type VariantDTO struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	SKU                 string    `json:"sku"`
	PriceCents          int64     `json:"price_cents"`
	DisplayPrice        string    `json:"display_price"`
	CompareAtPriceCents *int64    `json:"compare_at_price_cents,omitempty"`
	ImageURL            *string   `json:"image_url,omitempty"`
	Position            int       `json:"position"`
}

// ProductDTO is the API shape of a catalog product with computed pricing.
type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Currency    string              `json:"currency"`
	Images      []string            `json:"images"`
	Pricing     pricing.PricingInfo `json:"pricing"`
	Variants    []VariantDTO        `json:"variants"`
	CreatedAt   time.Time           `json:"created_at"`
}

// SearchResultDTO is a paginated search response.
type SearchResultDTO struct {
	Products []ProductDTO `json:"products"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

func toProductDTO(engine *pricing.Engine, product models.Product) ProductDTO {
	variantPrices := make([]*int64, 0, len(product.Variants))
	variants := make([]VariantDTO, 0, len(product.Variants))
	for _, v := range product.Variants {
		variantPrices = append(variantPrices, v.PriceCents)
		effective := v.EffectivePriceCents(product.BasePriceCents)
		variants = append(variants, VariantDTO{
			ID:                  v.ID,
			Title:               v.Title,
			SKU:                 v.SKU,
			PriceCents:          effective,
			DisplayPrice:        pricing.FormatAmount(effective, product.Currency),
			CompareAtPriceCents: v.CompareAtPriceCents,
			ImageURL:            v.ImageURL,
			Position:            v.Position,
		})
	}

	return ProductDTO{
		ID:          product.ID,
		Title:       product.Title,
		Description: product.Description,
		Currency:    product.Currency,
		Images:      product.Images,
		Pricing:     engine.ComputeVariants(variantPrices, product.BasePriceCents, product.CompareAtPriceCents, product.Currency),
		Variants:    variants,
		CreatedAt:   product.CreatedAt,
	}
}
