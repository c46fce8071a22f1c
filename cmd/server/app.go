package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"trattoria/internal/api"
	"trattoria/internal/auth"
	"trattoria/internal/cache"
	"trattoria/internal/config"
	"trattoria/internal/database"
	"trattoria/internal/metrics"
	"trattoria/internal/middleware"
	"trattoria/internal/repository"
	"trattoria/internal/service"
)

type app struct {
	handler      http.Handler
	reservations *service.ReservationService
	jobs         *service.JobService

	db      *sqlx.DB
	redis   *redis.Client
	limiter *middleware.RateLimiter
}

func (a *app) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// build wires stores, services and the router from cfg. Without DATABASE_URL
// everything runs on in-memory stores.
func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{}

	var (
		reservationStore repository.ReservationStore
		userStore        repository.UserStore
		adminStore       repository.AdminAuthRepository
	)
	if cfg.DatabaseURL != "" {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		conn, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.db = conn
		reservationStore = repository.NewReservationRepository(conn)
		userStore = repository.NewUserRepository(conn)
		adminStore = repository.NewAdminAuthRepository(conn)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		reservationStore = repository.NewMemoryReservationRepository()
		userStore = repository.NewMemoryUserRepository()
		adminStore = repository.NewMemoryAdminAuthRepository()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	availability := service.NewAvailabilityService(reservationStore, cfg.OpeningHours, cfg.SlotCapacity).
		WithMetrics(recorder)
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := cache.Ping(ctx, client); err != nil {
			log.Warn("redis unavailable, availability cache disabled", slog.String("error", err.Error()))
			client.Close()
		} else {
			a.redis = client
			availability.WithCache(cache.NewCoversCache(client, cfg.AvailabilityTTL))
		}
	}

	var gateway service.PaymentGateway
	switch cfg.PaymentProvider {
	case "stripe":
		gateway = service.NewStripeGateway(cfg.StripeSecretKey)
	case "simulated", "":
		gateway = service.NewSimulatedGateway()
	default:
		a.Close()
		return nil, fmt.Errorf("unknown PAYMENT_PROVIDER %q", cfg.PaymentProvider)
	}

	var mailer service.Mailer = service.LogMailer{}
	if cfg.SendGridAPIKey != "" && cfg.SendGridFromEmail != "" {
		mailer = service.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName)
	}
	var texter service.Texter = service.LogTexter{}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != "" {
		texter = service.NewTwilioTexter(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}
	notifier, err := service.NewNotifyService(mailer, texter, cfg.RestaurantName)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.reservations = service.NewReservationService(reservationStore, availability, service.ReservationConfig{
		MaxPartySize:         cfg.MaxPartySize,
		SlotCapacity:         cfg.SlotCapacity,
		BookingWindowMonths:  cfg.BookingWindowMonths,
		CancellationCutoff:   cfg.CancellationCutoff,
		RequireApproval:      cfg.RequireApproval,
		Location:             cfg.Location,
		DepositMinPartySize:  cfg.DepositMinPartySize,
		DepositPerGuestCents: cfg.DepositPerGuestCents,
		Currency:             cfg.Currency,
		DefaultCountryCode:   cfg.DefaultCountryCode,
	}).WithPayments(gateway).WithNotifier(notifier).WithMetrics(recorder)

	a.jobs = service.NewJobService(reservationStore, a.reservations, notifier, cfg.PendingTTL, cfg.Location)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	a.limiter = middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitPerMin))

	a.handler = api.NewRouter(api.Dependencies{
		Reservations:        a.reservations,
		Availability:        availability,
		Users:               service.NewUserAuthService(userStore, tokens, cfg.DefaultCountryCode),
		AdminAuth:           service.NewAdminAuthService(adminStore, tokens),
		Admin:               service.NewAdminService(a.reservations),
		Payments:            service.NewPaymentService(gateway, cfg.Currency),
		Tokens:              tokens,
		Logger:              log,
		Metrics:             recorder,
		MetricsHandler:      metrics.Handler(registry),
		CreateLimiter:       a.limiter,
		Health:              a.health,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		CORSAllowedOrigin:   cfg.CORSAllowedOrigin,
		CookieSecure:        cfg.CookieSecure,
		TrustProxyHeaders:   cfg.TrustProxyHeaders,
	})
	return a, nil
}

func (a *app) health(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.redis != nil {
		if err := cache.Ping(ctx, a.redis); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
