package payments

import "context"

// Metadata keys understood by providers.
const (
	MetadataSessionID = "checkout_session_id"
	MetadataSourceID  = "source_id"
)

// IntentStatus tracks the lifecycle of a payment intent.
type IntentStatus string

const (
	IntentStatusPending  IntentStatus = "pending"
	IntentStatusCaptured IntentStatus = "captured"
	IntentStatusFailed   IntentStatus = "failed"
)

// Intent is a promise to collect a fixed amount. The amount is set at
// creation and never renegotiated.
type Intent struct {
	ID          string       `json:"id"`
	AmountCents int64        `json:"amount_cents"`
	Currency    string       `json:"currency"`
	Status      IntentStatus `json:"status"`
	// ProviderRef is the processor-side payment id once captured.
	ProviderRef string `json:"provider_ref,omitempty"`
}

// Provider abstracts the payment processor. CreateIntent registers the
// amount to collect; Confirm executes the charge exactly once.
type Provider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (Intent, error)
	Confirm(ctx context.Context, intentID string) (Intent, error)
}
