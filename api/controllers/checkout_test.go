package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	checkoutsvc "github.com/quenbyco/storefront-backend/internal/checkout"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/types"
)

type stubCheckoutService struct {
	session      models.CheckoutSession
	result       checkoutsvc.ConfirmResult
	err          error
	lastIdentity types.Identity
	lastSession  uuid.UUID
	lastInput    checkoutsvc.SubmitAddressInput
}

func (s *stubCheckoutService) Start(_ context.Context, identity types.Identity) (models.CheckoutSession, error) {
	s.lastIdentity = identity
	return s.session, s.err
}

func (s *stubCheckoutService) SubmitAddress(_ context.Context, identity types.Identity, sessionID uuid.UUID, in checkoutsvc.SubmitAddressInput) (models.CheckoutSession, error) {
	s.lastIdentity = identity
	s.lastSession = sessionID
	s.lastInput = in
	return s.session, s.err
}

func (s *stubCheckoutService) Confirm(_ context.Context, identity types.Identity, sessionID uuid.UUID) (checkoutsvc.ConfirmResult, error) {
	s.lastIdentity = identity
	s.lastSession = sessionID
	return s.result, s.err
}

func (s *stubCheckoutService) Get(_ context.Context, identity types.Identity, sessionID uuid.UUID) (models.CheckoutSession, error) {
	s.lastIdentity = identity
	s.lastSession = sessionID
	return s.session, s.err
}

func checkoutRouter(svc checkoutsvc.Service) http.Handler {
	router := chi.NewRouter()
	router.Route("/api/v1/checkout", func(r chi.Router) {
		r.Post("/", CheckoutStart(svc, nil))
		r.Get("/{checkoutId}", CheckoutDetail(svc, nil))
		r.Post("/{checkoutId}/address", CheckoutSubmitAddress(svc, nil))
		r.Post("/{checkoutId}/confirm", CheckoutConfirm(svc, nil))
	})
	return router
}

func TestCheckoutStart(t *testing.T) {
	svc := &stubCheckoutService{session: models.CheckoutSession{
		ID:     uuid.New(),
		Status: enums.CheckoutStatusCollectingAddress,
	}}
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/checkout", ""))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), svc.session.ID.String())
	assert.Equal(t, "session:guest-1", svc.lastIdentity.Key())
}

func TestCheckoutStartEmptyCart(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeValidation, "cannot start checkout with an empty cart")}
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/checkout", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutSubmitAddress(t *testing.T) {
	svc := &stubCheckoutService{session: models.CheckoutSession{
		ID:     uuid.New(),
		Status: enums.CheckoutStatusAwaitingPayment,
	}}
	sessionID := uuid.New()
	body := `{
		"billing": {
			"type": "billing",
			"full_name": "Ada Lovelace",
			"line1": "1 Analytical Way",
			"city": "London",
			"region": "LDN",
			"postal_code": "EC1A 1BB",
			"country": "GB"
		},
		"payment_source_id": "cnon:card-nonce-ok"
	}`

	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/checkout/"+sessionID.String()+"/address", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionID, svc.lastSession)
	assert.Equal(t, "cnon:card-nonce-ok", svc.lastInput.PaymentSourceID)
	assert.Equal(t, "Ada Lovelace", svc.lastInput.Billing.FullName)
}

func TestCheckoutSubmitAddressRejectsBadUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	checkoutRouter(&stubCheckoutService{}).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/checkout/nope/address", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutConfirm(t *testing.T) {
	svc := &stubCheckoutService{result: checkoutsvc.ConfirmResult{
		Session: models.CheckoutSession{ID: uuid.New(), Status: enums.CheckoutStatusConfirmed},
		Order:   models.Order{ID: uuid.New(), TotalCents: 4819},
	}}
	sessionID := uuid.New()

	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/checkout/"+sessionID.String()+"/confirm", ""))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), svc.result.Order.ID.String())
}

func TestCheckoutConfirmAlreadyFinalized(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeSessionFinal, "session already finalized")}
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/checkout/"+uuid.NewString()+"/confirm", ""))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_ALREADY_FINALIZED")
}

func TestCheckoutDetailRequiresIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	checkoutRouter(&stubCheckoutService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
