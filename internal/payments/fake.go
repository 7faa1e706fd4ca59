package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
)

// FakeProvider is an in-memory Provider for tests. Confirm outcomes can
// be forced per intent with FailConfirmWith.
type FakeProvider struct {
	mu      sync.Mutex
	intents map[string]Intent
	fail    map[string]error
	created int
}

// NewFakeProvider returns an empty fake.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		intents: make(map[string]Intent),
		fail:    make(map[string]error),
	}
}

// CreateIntent registers a pending intent.
func (f *FakeProvider) CreateIntent(_ context.Context, amountCents int64, currency string, metadata map[string]string) (Intent, error) {
	if amountCents <= 0 {
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "payment currency is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	intent := Intent{
		ID:          fmt.Sprintf("fake-intent-%d", f.created),
		AmountCents: amountCents,
		Currency:    currency,
		Status:      IntentStatusPending,
	}
	_ = metadata
	f.intents[intent.ID] = intent
	return intent, nil
}

// Confirm captures the intent unless a failure was forced.
func (f *FakeProvider) Confirm(_ context.Context, intentID string) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	intent, ok := f.intents[intentID]
	if !ok {
		return Intent{}, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found or expired")
	}
	if err := f.fail[intentID]; err != nil {
		return Intent{}, err
	}
	intent.Status = IntentStatusCaptured
	intent.ProviderRef = "fake-" + intentID
	f.intents[intentID] = intent
	return intent, nil
}

// FailConfirmWith forces Confirm of the given intent to return err. The
// intent stays pending so a later Confirm can succeed after ClearFailure.
func (f *FakeProvider) FailConfirmWith(intentID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[intentID] = err
}

// ClearFailure removes a forced failure.
func (f *FakeProvider) ClearFailure(intentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fail, intentID)
}

// Intent reports the current state of an intent.
func (f *FakeProvider) Intent(intentID string) (Intent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[intentID]
	return intent, ok
}

// CreatedCount reports how many intents were requested.
func (f *FakeProvider) CreatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}
