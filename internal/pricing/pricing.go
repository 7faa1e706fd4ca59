package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Engine computes display pricing for catalog entries. It is pure: no
// storage, no clock, no I/O. Monetary amounts are integer minor units.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// ComputeInput carries everything needed to price a product card.
type ComputeInput struct {
	BasePriceCents      int64
	CompareAtPriceCents *int64
	// VariantPricesCents are effective prices (variant override or base
	// fallback already applied). Empty means single-price product.
	VariantPricesCents []int64
	Currency           string
}

// PriceRange covers variable-priced products.
type PriceRange struct {
	MinCents int64  `json:"min_cents"`
	MaxCents int64  `json:"max_cents"`
	Min      string `json:"min"`
	Max      string `json:"max"`
}

// PricingInfo is the computed display payload.
type PricingInfo struct {
	DisplayPrice       string      `json:"display_price"`
	OriginalPrice      *string     `json:"original_price,omitempty"`
	DiscountPercentage *int        `json:"discount_percentage,omitempty"`
	IsOnSale           bool        `json:"is_on_sale"`
	PriceRange         *PriceRange `json:"price_range,omitempty"`
	HasVariablePricing bool        `json:"has_variable_pricing"`
	LowestPriceCents   int64       `json:"lowest_price_cents"`
	Currency           string      `json:"currency"`
}

// Compute derives the display pricing for a product. Variable pricing
// renders in "from" mode; a compare-at above the effective price marks the
// product on sale with a rounded discount percentage.
func (e *Engine) Compute(in ComputeInput) PricingInfo {
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	min, max := priceBounds(in)
	variable := min != max

	info := PricingInfo{
		HasVariablePricing: variable,
		LowestPriceCents:   min,
		Currency:           currency,
	}

	if variable {
		info.DisplayPrice = "from " + FormatAmount(min, currency)
		info.PriceRange = &PriceRange{
			MinCents: min,
			MaxCents: max,
			Min:      FormatAmount(min, currency),
			Max:      FormatAmount(max, currency),
		}
	} else {
		info.DisplayPrice = FormatAmount(min, currency)
	}

	if in.CompareAtPriceCents != nil && *in.CompareAtPriceCents > min && min > 0 {
		info.IsOnSale = true
		original := FormatAmount(*in.CompareAtPriceCents, currency)
		info.OriginalPrice = &original
		pct := discountPercent(*in.CompareAtPriceCents, min)
		info.DiscountPercentage = &pct
	}

	return info
}

// ComputeVariants prices a variant set, applying the base price wherever a
// variant has no override.
func (e *Engine) ComputeVariants(variantPrices []*int64, baseCents int64, compareAtCents *int64, currency string) PricingInfo {
	effective := make([]int64, 0, len(variantPrices))
	for _, p := range variantPrices {
		if p != nil {
			effective = append(effective, *p)
		} else {
			effective = append(effective, baseCents)
		}
	}
	return e.Compute(ComputeInput{
		BasePriceCents:      baseCents,
		CompareAtPriceCents: compareAtCents,
		VariantPricesCents:  effective,
		Currency:            currency,
	})
}

// ValidationResult splits blocking problems from advisories.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the input has no blocking errors.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks pricing input for blocking errors and advisory warnings.
// Warnings never block a listing.
func (e *Engine) Validate(in ComputeInput) ValidationResult {
	var result ValidationResult

	if in.BasePriceCents <= 0 {
		result.Errors = append(result.Errors, "base price must be greater than zero")
	}
	for _, p := range in.VariantPricesCents {
		if p <= 0 {
			result.Errors = append(result.Errors, "variant price must be greater than zero")
			break
		}
	}

	min, max := priceBounds(in)
	if in.CompareAtPriceCents != nil && *in.CompareAtPriceCents <= min {
		result.Warnings = append(result.Warnings, "compare-at price does not exceed the effective price; product will not show as on sale")
	}
	if len(in.VariantPricesCents) > 0 && (in.BasePriceCents < min || in.BasePriceCents > max) {
		result.Warnings = append(result.Warnings, "base price falls outside the variant price range")
	}

	return result
}

// ParseAmount converts human-entered amounts ("1,299.50", "$12", "12.5")
// into cents. Garbage input yields zero; the parser never errors.
func ParseAmount(text string) int64 {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return 0
	}
	return d.Shift(2).Round(0).IntPart()
}

// FormatAmount renders cents as a grouped two-decimal currency string. The
// result is never blank: unknown currencies fall back to a bare grouped
// number.
func FormatAmount(cents int64, currency string) string {
	amount := decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
	grouped := groupDigits(amount)
	switch strings.ToUpper(currency) {
	case "USD", "":
		return "$" + grouped
	case "EUR":
		return "€" + grouped
	case "GBP":
		return "£" + grouped
	default:
		return fmt.Sprintf("%s %s", strings.ToUpper(currency), grouped)
	}
}

func groupDigits(amount string) string {
	sign := ""
	if strings.HasPrefix(amount, "-") {
		sign = "-"
		amount = amount[1:]
	}
	whole, frac, _ := strings.Cut(amount, ".")
	if len(whole) <= 3 {
		return sign + whole + "." + frac
	}
	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	return sign + b.String() + "." + frac
}

func priceBounds(in ComputeInput) (int64, int64) {
	if len(in.VariantPricesCents) == 0 {
		return in.BasePriceCents, in.BasePriceCents
	}
	min, max := in.VariantPricesCents[0], in.VariantPricesCents[0]
	for _, p := range in.VariantPricesCents[1:] {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return min, max
}

func discountPercent(compareAt, price int64) int {
	if compareAt <= 0 {
		return 0
	}
	diff := decimal.NewFromInt(compareAt - price)
	pct := diff.Div(decimal.NewFromInt(compareAt)).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}
