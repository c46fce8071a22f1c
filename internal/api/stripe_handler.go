package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"trattoria/internal/db"
	"trattoria/internal/service"
)

const maxWebhookBytes = int64(65536)

type StripeWebhookHandler struct {
	webhookSecret      string
	reservationService *service.ReservationService
}

func NewStripeWebhookHandler(webhookSecret string, reservationService *service.ReservationService) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		webhookSecret:      webhookSecret,
		reservationService: reservationService,
	}
}

// HandleWebhook records deposit outcomes reported by Stripe.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("stripe webhook: error reading body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		slog.Warn("stripe webhook: signature verification failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var intentID, status string
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			slog.Error("stripe webhook: error parsing payment intent", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		intentID = pi.ID
		status = db.PaymentPaid
		if event.Type == "payment_intent.payment_failed" {
			status = db.PaymentFailed
		}
	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			slog.Error("stripe webhook: error parsing charge", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if charge.PaymentIntent != nil {
			intentID = charge.PaymentIntent.ID
		}
		status = db.PaymentRefunded
	default:
		slog.Info("stripe webhook: unhandled event type", slog.String("type", string(event.Type)))
		w.WriteHeader(http.StatusOK)
		return
	}

	if intentID == "" {
		slog.Warn("stripe webhook: event without payment intent", slog.String("type", string(event.Type)))
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, err := h.reservationService.MarkPaymentStatus(r.Context(), intentID, status); err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			slog.Info("stripe webhook: no reservation for payment intent", slog.String("payment_intent_id", intentID))
			w.WriteHeader(http.StatusOK)
			return
		}
		slog.Error("stripe webhook: error updating reservation", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
