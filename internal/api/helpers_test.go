package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trattoria/internal/auth"
	"trattoria/internal/config"
	"trattoria/internal/middleware"
	"trattoria/internal/repository"
	"trattoria/internal/service"
)

var testNow = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

const (
	testCSRF          = "test-csrf-token"
	testWebhookSecret = "whsec_test"
)

type testEnv struct {
	handler      http.Handler
	reservations *service.ReservationService
	gateway      *service.SimulatedGateway
	tokens       *auth.TokenIssuer
	admins       *repository.MemoryAdminAuthRepository
}

func newTestEnv(t *testing.T, overrides ...func(*Dependencies)) *testEnv {
	t.Helper()
	store := repository.NewMemoryReservationRepository()
	cfg := service.ReservationConfig{
		MaxPartySize:         12,
		SlotCapacity:         40,
		BookingWindowMonths:  3,
		CancellationCutoff:   2 * time.Hour,
		Location:             time.UTC,
		DepositMinPartySize:  8,
		DepositPerGuestCents: 1000,
		Currency:             "eur",
		DefaultCountryCode:   "39",
	}
	gateway := service.NewSimulatedGateway()
	availability := service.NewAvailabilityService(store, config.DefaultOpeningHours(), cfg.SlotCapacity)
	reservations := service.NewReservationService(store, availability, cfg).
		WithPayments(gateway).
		WithClock(func() time.Time { return testNow })
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	admins := repository.NewMemoryAdminAuthRepository()

	limiter := middleware.NewRateLimiter(middleware.PerMinute(1000))
	t.Cleanup(limiter.Stop)

	deps := Dependencies{
		Reservations:        reservations,
		Availability:        availability,
		Users:               service.NewUserAuthService(repository.NewMemoryUserRepository(), tokens, "39"),
		AdminAuth:           service.NewAdminAuthService(admins, tokens),
		Admin:               service.NewAdminService(reservations),
		Payments:            service.NewPaymentService(gateway, "eur"),
		Tokens:              tokens,
		CreateLimiter:       limiter,
		StripeWebhookSecret: testWebhookSecret,
		CORSAllowedOrigin:   "http://localhost:5173",
	}
	for _, override := range overrides {
		override(&deps)
	}
	return &testEnv{
		handler:      NewRouter(deps),
		reservations: reservations,
		gateway:      gateway,
		tokens:       tokens,
		admins:       admins,
	}
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withForwardedFor(ip string) requestOption {
	return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip) }
}

func withoutCSRF() requestOption {
	return func(r *http.Request) {
		r.Header.Del(middleware.CSRFHeaderName)
		r.Header.Del("Cookie")
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: testCSRF})
	req.Header.Set(middleware.CSRFHeaderName, testCSRF)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func reservationBody() map[string]any {
	return map[string]any{
		"customerName":  "Jane Doe",
		"customerEmail": "jane@example.com",
		"date":          "2024-06-01",
		"time":          "19:00",
		"partySize":     4,
	}
}
