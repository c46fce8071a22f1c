package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"trattoria/internal/auth"
	"trattoria/internal/metrics"
	"trattoria/internal/middleware"
	"trattoria/internal/service"
)

const stripeWebhookPath = "/api/stripe/webhook"

// Dependencies wires services into the HTTP surface.
type Dependencies struct {
	Reservations *service.ReservationService
	Availability *service.AvailabilityService
	Users        *service.UserAuthService
	AdminAuth    service.AdminAuthService
	Admin        *service.AdminService
	Payments     *service.PaymentService
	Tokens       *auth.TokenIssuer

	Logger         *slog.Logger
	Metrics        metrics.Recorder
	MetricsHandler http.Handler
	CreateLimiter  *middleware.RateLimiter
	// Health reports whether backing stores are reachable. Nil means always healthy.
	Health func(ctx context.Context) error

	StripeWebhookSecret string
	CORSAllowedOrigin   string
	CookieSecure        bool
	// TrustProxyHeaders lets handlers.ProxyHeaders rewrite RemoteAddr, which
	// the rate limiter keys on.
	TrustProxyHeaders bool
}

func NewRouter(d Dependencies) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	csrfConfig := middleware.CSRFConfig{
		CookieSecure: d.CookieSecure,
		ExemptPaths:  []string{stripeWebhookPath},
	}

	userHandler := NewUserReservationHandler(d.Reservations, d.Availability)
	sessionHandler := NewSessionHandler(d.Users, d.Tokens.TTL(), d.CookieSecure)
	adminAuthHandler := NewAdminAuthHandler(d.AdminAuth)
	adminHandler := NewAdminHandler(d.Admin, d.Reservations)
	paymentHandler := NewPaymentHandler(d.Payments)
	stripeHandler := NewStripeWebhookHandler(d.StripeWebhookSecret, d.Reservations)

	r := mux.NewRouter()
	r.Use(
		middleware.NewRecoveryMiddleware(),
		middleware.NewSecurityHeadersMiddleware(),
		auth.OptionalUser(d.Tokens),
		middleware.NewLoggingMiddleware(d.Logger, d.Metrics),
	)

	r.HandleFunc("/health", healthHandler(d.Health)).Methods(http.MethodGet)
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler).Methods(http.MethodGet)
	}

	// Public endpoints
	public := r.PathPrefix("/api").Subrouter()
	public.Use(middleware.NewCSRFMiddleware(csrfConfig))
	public.Handle("/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig)).Methods(http.MethodGet)
	public.HandleFunc("/session", sessionHandler.Session).Methods(http.MethodGet)
	public.HandleFunc("/auth/register", sessionHandler.Register).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", sessionHandler.Login).Methods(http.MethodPost)
	public.HandleFunc("/auth/logout", sessionHandler.Logout).Methods(http.MethodPost)
	public.HandleFunc("/availability", userHandler.CheckAvailability).Methods(http.MethodGet)

	create := http.Handler(http.HandlerFunc(userHandler.CreateReservation))
	if d.CreateLimiter != nil {
		create = d.CreateLimiter.Middleware(create)
	}
	public.Handle("/reservations", create).Methods(http.MethodPost)
	public.HandleFunc("/reservations/mine", userHandler.MyReservations).Methods(http.MethodGet)
	public.HandleFunc("/reservations/{id}", userHandler.GetReservation).Methods(http.MethodGet)
	public.HandleFunc("/reservations/{id}", userHandler.CancelReservation).Methods(http.MethodDelete)
	public.HandleFunc("/payments/intents", paymentHandler.CreateIntent).Methods(http.MethodPost)
	public.HandleFunc("/stripe/webhook", stripeHandler.HandleWebhook).Methods(http.MethodPost)

	r.HandleFunc("/admin/login", adminAuthHandler.Login).Methods(http.MethodPost)

	// Admin endpoints (protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AdminAuthMiddleware(d.Tokens))
	admin.HandleFunc("/admins", adminAuthHandler.CreateUserAdmin).Methods(http.MethodPost)
	admin.HandleFunc("/reservations", adminHandler.ListReservations).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/export", adminHandler.ExportReservations).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/{id}/confirm", adminHandler.ConfirmReservation).Methods(http.MethodPut)
	admin.HandleFunc("/reservations/{id}", adminHandler.AdminCancelReservation).Methods(http.MethodDelete)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{d.CORSAllowedOrigin}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", middleware.CSRFHeaderName}),
		handlers.AllowCredentials(),
	)
	if d.TrustProxyHeaders {
		return handlers.ProxyHeaders(cors(r))
	}
	return cors(r)
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
