package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"trattoria/internal/auth"
	"trattoria/internal/entities"
	"trattoria/internal/service"
)

type UserReservationHandler struct {
	reservations *service.ReservationService
	availability *service.AvailabilityService
}

func NewUserReservationHandler(reservations *service.ReservationService, availability *service.AvailabilityService) *UserReservationHandler {
	return &UserReservationHandler{reservations: reservations, availability: availability}
}

// CheckAvailability answers GET /api/availability?date=YYYY-MM-DD[&partySize=n].
func (h *UserReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		writeError(w, r, &service.ValidationError{Fields: map[string]string{"date": "is required"}})
		return
	}
	partySize := 1
	if raw := q.Get("partySize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, &service.ValidationError{Fields: map[string]string{"partySize": "must be a positive number"}})
			return
		}
		partySize = n
	}

	slots, err := h.availability.GetAvailableTimeSlots(r.Context(), date, partySize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.AvailabilityResponse{Date: date, PartySize: partySize, Slots: slots})
}

func (h *UserReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req entities.ReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	booking, err := h.reservations.CreateReservation(r.Context(), req, customerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (h *UserReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.GetReservation(r.Context(), mux.Vars(r)["id"], requester(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *UserReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.CancelReservation(r.Context(), mux.Vars(r)["id"], requester(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// MyReservations lists the signed-in customer's bookings; anonymous callers get none.
func (h *UserReservationHandler) MyReservations(w http.ResponseWriter, r *http.Request) {
	who := service.Requester{}
	if claims, ok := auth.FromContext(r.Context()); ok && claims.Role == auth.RoleCustomer {
		who = service.Requester{UserID: claims.Subject, Email: claims.Email}
	}
	list, err := h.reservations.GetUserReservations(r.Context(), who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func customerID(r *http.Request) string {
	if claims, ok := auth.FromContext(r.Context()); ok && claims.Role == auth.RoleCustomer {
		return claims.Subject
	}
	return ""
}

// requester combines the signed-in customer with the ?email= a guest proves
// ownership with.
func requester(r *http.Request) service.Requester {
	who := service.Requester{Email: r.URL.Query().Get("email")}
	if claims, ok := auth.FromContext(r.Context()); ok && claims.Role == auth.RoleCustomer {
		who.UserID = claims.Subject
		if who.Email == "" {
			who.Email = claims.Email
		}
	}
	return who
}
