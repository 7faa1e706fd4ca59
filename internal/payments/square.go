package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/quenbyco/storefront-backend/pkg/config"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	intentScope      = "payment_intent"
	defaultIntentTTL = time.Hour
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errStoreRequired       = errors.New("payment intent store is required")
	errLoggerRequired      = errors.New("payments logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// IntentStore persists pending intents between SubmitAddress and Confirm.
// The redis client satisfies it.
type IntentStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// SquareProviderParams groups the dependencies for the Square provider.
type SquareProviderParams struct {
	Config    config.SquareConfig
	Store     IntentStore
	Logger    *logger.Logger
	IntentTTL time.Duration
}

// SquareProvider collects payments through Square. Intents live in the
// store until confirmed; the stored Square idempotency key makes a
// retried Confirm settle on a single charge.
type SquareProvider struct {
	sdk         *sqclient.Client
	store       IntentStore
	logger      *logger.Logger
	environment string
	locationID  string
	intentTTL   time.Duration
}

// NewSquareProvider validates the credentials and builds the provider.
func NewSquareProvider(ctx context.Context, params SquareProviderParams) (*SquareProvider, error) {
	if params.Logger == nil {
		return nil, errLoggerRequired
	}
	if params.Store == nil {
		return nil, errStoreRequired
	}
	env, err := normalizeEnv(params.Config.Environment)
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(params.Config.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	locationID := strings.TrimSpace(params.Config.LocationID)
	if locationID == "" {
		return nil, errLocationRequired
	}

	ttl := params.IntentTTL
	if ttl <= 0 {
		ttl = defaultIntentTTL
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURLs[env]),
		sqoption.WithToken(accessToken),
	)

	p := &SquareProvider{
		sdk:         sdk,
		store:       params.Store,
		logger:      params.Logger,
		environment: env,
		locationID:  locationID,
		intentTTL:   ttl,
	}
	params.Logger.Info(ctx, "square payments provider initialized")
	return p, nil
}

// Environment reports the normalized Square environment.
func (p *SquareProvider) Environment() string {
	if p == nil {
		return ""
	}
	return p.environment
}

type intentRecord struct {
	AmountCents    int64        `json:"amount_cents"`
	Currency       string       `json:"currency"`
	SourceID       string       `json:"source_id"`
	SessionID      string       `json:"checkout_session_id,omitempty"`
	IdempotencyKey string       `json:"idempotency_key"`
	Status         IntentStatus `json:"status"`
	ProviderRef    string       `json:"provider_ref,omitempty"`
}

// CreateIntent registers the amount to collect and returns a pending
// intent. The charge itself happens at Confirm under the idempotency key
// minted here.
func (p *SquareProvider) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (Intent, error) {
	if amountCents <= 0 {
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "payment currency is required")
	}
	sourceID := strings.TrimSpace(metadata[MetadataSourceID])
	if sourceID == "" {
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}

	intentID := fmt.Sprintf("pay-%s", uuid.NewString())
	record := intentRecord{
		AmountCents:    amountCents,
		Currency:       currency,
		SourceID:       sourceID,
		SessionID:      strings.TrimSpace(metadata[MetadataSessionID]),
		IdempotencyKey: p.newIdempotencyKey("payment.create"),
		Status:         IntentStatusPending,
	}
	if err := p.saveRecord(ctx, intentID, record); err != nil {
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment intent")
	}

	p.log(ctx, "response", "create_intent", map[string]any{
		"intent_id": intentID,
		"amount":    amountCents,
		"currency":  currency,
	})
	return intentFromRecord(intentID, record), nil
}

// Confirm executes the charge for a pending intent. A captured intent is
// returned as-is; a declined charge rotates the idempotency key so the
// shopper can retry with the session still open.
func (p *SquareProvider) Confirm(ctx context.Context, intentID string) (Intent, error) {
	record, err := p.loadRecord(ctx, intentID)
	if err != nil {
		return Intent{}, err
	}
	if record.Status == IntentStatusCaptured {
		return intentFromRecord(intentID, record), nil
	}

	req := &sq.CreatePaymentRequest{
		IdempotencyKey: record.IdempotencyKey,
		SourceID:       record.SourceID,
		LocationID:     ptrString(p.locationID),
		AmountMoney:    moneyPtr(record.AmountCents, record.Currency),
		ReferenceID:    ptrString(record.SessionID),
	}
	p.log(ctx, "request", "create_payment", map[string]any{
		"intent_id": intentID,
		"amount":    record.AmountCents,
	})

	resp, err := p.sdk.Payments.Create(ctx, req)
	if err != nil {
		p.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		// A fresh key lets the next attempt charge cleanly instead of
		// replaying the declined request.
		record.IdempotencyKey = p.newIdempotencyKey("payment.create")
		record.Status = IntentStatusPending
		if saveErr := p.saveRecord(ctx, intentID, record); saveErr != nil {
			p.logger.Warn(p.logger.WithFields(ctx, map[string]any{"error": saveErr.Error()}),
				"rotating payment idempotency key failed")
		}
		return Intent{}, p.mapSquareError(err, "create payment")
	}

	payment := resp.GetPayment()
	record.Status = IntentStatusCaptured
	record.ProviderRef = stringValue(payment.GetID())
	if err := p.saveRecord(ctx, intentID, record); err != nil {
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store captured intent")
	}

	p.log(ctx, "response", "create_payment", map[string]any{
		"intent_id":  intentID,
		"payment_id": record.ProviderRef,
		"status":     stringValue(payment.GetStatus()),
	})
	return intentFromRecord(intentID, record), nil
}

func (p *SquareProvider) saveRecord(ctx context.Context, intentID string, record intentRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, p.store.IdempotencyKey(intentScope, intentID), string(raw), p.intentTTL)
}

func (p *SquareProvider) loadRecord(ctx context.Context, intentID string) (intentRecord, error) {
	raw, err := p.store.Get(ctx, p.store.IdempotencyKey(intentScope, intentID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return intentRecord{}, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found or expired")
		}
		return intentRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	var record intentRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return intentRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent")
	}
	return record, nil
}

func intentFromRecord(intentID string, record intentRecord) Intent {
	return Intent{
		ID:          intentID,
		AmountCents: record.AmountCents,
		Currency:    record.Currency,
		Status:      record.Status,
		ProviderRef: record.ProviderRef,
	}
}

func (p *SquareProvider) newIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "sf"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

func (p *SquareProvider) log(ctx context.Context, phase, op string, fields map[string]any) {
	if p == nil || p.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = p.redact(k, v)
	}
	ctx = p.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		p.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		p.logger.Info(ctx, fmt.Sprintf("square %s", phase))
	}
}

func (p *SquareProvider) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "source", "token", "cvv", "cvc", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (p *SquareProvider) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		code := domainCodeForStatus(apiErr.StatusCode)
		for _, sqErr := range extractSquareErrors(apiErr) {
			if sqErr == nil {
				continue
			}
			if sqErr.Code == sq.ErrorCodeIdempotencyKeyReused {
				code = pkgerrors.CodeIdempotency
				break
			}
			if sqErr.Category == sq.ErrorCategoryAuthenticationError {
				code = pkgerrors.CodeUnauthorized
				break
			}
		}
		return pkgerrors.Wrap(code, err, fmt.Sprintf("square %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("square %s failed", op))
}

func extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	}
	return "", errInvalidSquareEnv
}
