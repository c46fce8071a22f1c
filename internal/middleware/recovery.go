package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	apperrors "trattoria/internal/errors"
)

// NewRecoveryMiddleware turns a handler panic into a 500 response.
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic recovered",
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					apperrors.Write(w, apperrors.ErrInternal())
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
