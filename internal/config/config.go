package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
// It is loaded once and treated as immutable afterwards.
type Config struct {
	// Server
	Port              string
	CORSAllowedOrigin string
	CookieSecure      bool
	RateLimitPerMin   int
	// TrustProxyHeaders honours X-Forwarded-For and friends. Enable only
	// behind a reverse proxy that overwrites them.
	TrustProxyHeaders bool

	// Storage
	DatabaseURL string
	RedisURL    string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Restaurant
	RestaurantName      string
	DefaultCountryCode  string
	Location            *time.Location
	MaxPartySize        int
	SlotCapacity        int
	BookingWindowMonths int
	CancellationCutoff  time.Duration
	RequireApproval     bool
	PendingTTL          time.Duration
	OpeningHours        OpeningHours
	AvailabilityTTL     time.Duration

	// Payments
	PaymentProvider      string
	StripeSecretKey      string
	StripeWebhookSecret  string
	DepositMinPartySize  int
	DepositPerGuestCents int64
	Currency             string

	// Notifications
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string

	// Jobs
	ReminderSchedule string
	ExpireSchedule   string
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	var missing []string
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Port = getEnvString("PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", false)
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.RateLimitPerMin = getEnvInt("RATE_LIMIT_PER_MINUTE", 20)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)

	tz := getEnvString("TIMEZONE", "Europe/Rome")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc
	cfg.RestaurantName = getEnvString("RESTAURANT_NAME", "Trattoria")
	cfg.DefaultCountryCode = strings.TrimPrefix(getEnvString("DEFAULT_COUNTRY_CODE", "39"), "+")
	cfg.MaxPartySize = getEnvInt("MAX_PARTY_SIZE", 12)
	cfg.SlotCapacity = getEnvInt("SLOT_CAPACITY", 40)
	cfg.BookingWindowMonths = getEnvInt("BOOKING_WINDOW_MONTHS", 3)
	cfg.CancellationCutoff = getEnvDuration("CANCELLATION_CUTOFF", 2*time.Hour)
	cfg.RequireApproval = getEnvBool("RESERVATION_REQUIRE_APPROVAL", false)
	cfg.PendingTTL = getEnvDuration("PENDING_TTL", 24*time.Hour)
	cfg.AvailabilityTTL = getEnvDuration("AVAILABILITY_CACHE_TTL", 30*time.Second)

	cfg.OpeningHours = DefaultOpeningHours()
	if path := os.Getenv("OPENING_HOURS_FILE"); path != "" {
		hours, err := LoadOpeningHours(path)
		if err != nil {
			return nil, err
		}
		cfg.OpeningHours = hours
	}

	cfg.PaymentProvider = strings.ToLower(getEnvString("PAYMENT_PROVIDER", "simulated"))
	cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	if cfg.PaymentProvider == "stripe" && cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("PAYMENT_PROVIDER=stripe requires STRIPE_SECRET_KEY")
	}
	cfg.DepositMinPartySize = getEnvInt("DEPOSIT_MIN_PARTY_SIZE", 8)
	cfg.DepositPerGuestCents = getEnvInt64("DEPOSIT_PER_GUEST_CENTS", 1000)
	cfg.Currency = strings.ToLower(getEnvString("CURRENCY", "eur"))

	cfg.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	cfg.SendGridFromEmail = os.Getenv("SENDGRID_FROM_EMAIL")
	cfg.SendGridFromName = getEnvString("SENDGRID_FROM_NAME", "Trattoria")
	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioFromNumber = os.Getenv("TWILIO_FROM_NUMBER")

	cfg.ReminderSchedule = getEnvString("JOBS_REMINDER_SCHEDULE", "0 10 * * *")
	cfg.ExpireSchedule = getEnvString("JOBS_EXPIRE_SCHEDULE", "@every 15m")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
