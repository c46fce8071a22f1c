package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	apperrors "trattoria/internal/errors"
)

const (
	// CSRFCookieName is readable from JavaScript so the frontend can echo it.
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
	// ExemptPaths skip validation, e.g. signed third-party webhooks.
	ExemptPaths []string
}

// NewCSRFMiddleware enforces the double-submit check on state-changing
// requests. Safe methods pass and receive a token cookie when missing.
// Requests authenticated with a Bearer header carry no ambient credentials
// and are not checked.
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				ensureCSRFCookie(w, r, config)
				next.ServeHTTP(w, r)
				return
			}
			if isExempt(r.URL.Path, config.ExemptPaths) || strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(CSRFCookieName)
			if err != nil || cookie.Value == "" {
				rejectCSRF(w, r, "missing cookie token")
				return
			}
			header := r.Header.Get(CSRFHeaderName)
			if header == "" {
				rejectCSRF(w, r, "missing header token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
				rejectCSRF(w, r, "token mismatch")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler serves GET /api/csrf-token, reusing the cookie token if set.
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(CSRFCookieName); err == nil && cookie.Value != "" {
			token = cookie.Value
		} else {
			token, err = generateCSRFToken()
			if err != nil {
				slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
				apperrors.Write(w, apperrors.ErrInternal())
				return
			}
			setCSRFCookie(w, token, config)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
}

func rejectCSRF(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	apperrors.Write(w, apperrors.NewHTTPError(http.StatusForbidden, "csrf_failed", "Your session expired. Please reload the page and try again."))
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func isExempt(path string, exempt []string) bool {
	for _, p := range exempt {
		if path == p {
			return true
		}
	}
	return false
}

func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, config CSRFConfig) {
	if _, err := r.Cookie(CSRFCookieName); err == nil {
		return
	}
	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
		return
	}
	setCSRFCookie(w, token, config)
}

func setCSRFCookie(w http.ResponseWriter, token string, config CSRFConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   86400,
		HttpOnly: false,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
