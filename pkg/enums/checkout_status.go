package enums

import "fmt"

// CheckoutStatus tracks a checkout session through its one-way lifecycle.
type CheckoutStatus string

const (
	CheckoutStatusCollectingAddress CheckoutStatus = "collecting_address"
	CheckoutStatusAwaitingPayment   CheckoutStatus = "awaiting_payment"
	CheckoutStatusConfirmed         CheckoutStatus = "confirmed"
	CheckoutStatusExpired           CheckoutStatus = "expired"
)

var validCheckoutStatuses = []CheckoutStatus{
	CheckoutStatusCollectingAddress,
	CheckoutStatusAwaitingPayment,
	CheckoutStatusConfirmed,
	CheckoutStatusExpired,
}

// String implements fmt.Stringer.
func (c CheckoutStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutStatus.
func (c CheckoutStatus) IsValid() bool {
	for _, candidate := range validCheckoutStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (c CheckoutStatus) IsTerminal() bool {
	return c == CheckoutStatusConfirmed || c == CheckoutStatusExpired
}

// ParseCheckoutStatus converts raw input into a CheckoutStatus.
func ParseCheckoutStatus(value string) (CheckoutStatus, error) {
	for _, candidate := range validCheckoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout status %q", value)
}
