package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	apperrors "trattoria/internal/errors"
	"trattoria/internal/service"
)

const maxBodyBytes = int64(1 << 20)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON reads a JSON body into v, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		msg := "Invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is empty"
		}
		apperrors.Write(w, apperrors.ErrBadRequest(msg))
		return false
	}
	return true
}

// writeError maps service errors onto HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *apperrors.HTTPError
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &httpErr):
		apperrors.Write(w, httpErr)
	case errors.As(err, &validationErr):
		e := apperrors.NewHTTPError(http.StatusBadRequest, "validation_failed", "Please check the highlighted fields.")
		e.Fields = validationErr.Fields
		apperrors.Write(w, e)
	case errors.Is(err, service.ErrReservationNotFound):
		apperrors.Write(w, apperrors.ErrNotFound("Reservation not found"))
	case errors.Is(err, service.ErrSlotUnavailable):
		apperrors.Write(w, apperrors.ErrConflict("slot_unavailable", "This time is no longer available. Please choose another slot."))
	case errors.Is(err, service.ErrAlreadyCancelled):
		apperrors.Write(w, apperrors.ErrConflict("already_cancelled", "This reservation has already been cancelled."))
	case errors.Is(err, service.ErrCancellationClosed):
		apperrors.Write(w, apperrors.ErrConflict("cancellation_closed", "This reservation can no longer be cancelled online. Please call the restaurant."))
	case errors.Is(err, service.ErrInvalidTransition):
		apperrors.Write(w, apperrors.ErrConflict("invalid_transition", "Only pending reservations can be confirmed."))
	case errors.Is(err, service.ErrStatusChanged):
		apperrors.Write(w, apperrors.ErrConflict("reservation_changed", "This reservation was just updated. Please reload and try again."))
	case errors.Is(err, service.ErrInvalidCredentials):
		apperrors.Write(w, apperrors.ErrUnauthorized("Invalid email or password"))
	case errors.Is(err, service.ErrEmailTaken):
		apperrors.Write(w, apperrors.ErrConflict("email_taken", "An account with this email already exists."))
	default:
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apperrors.Write(w, apperrors.ErrInternal())
	}
}
