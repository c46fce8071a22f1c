package api

import (
	"net/http"

	"trattoria/internal/entities"
	"trattoria/internal/service"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req entities.PaymentIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	intent, err := h.payments.CreateIntent(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}
