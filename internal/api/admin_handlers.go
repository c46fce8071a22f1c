package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"trattoria/internal/entities"
	"trattoria/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	admin        *service.AdminService
	reservations *service.ReservationService
}

func NewAdminHandler(admin *service.AdminService, reservations *service.ReservationService) *AdminHandler {
	return &AdminHandler{admin: admin, reservations: reservations}
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.ListReservations(r.Context(), filterFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.ConfirmReservation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) AdminCancelReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.AdminCancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) ExportReservations(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.admin.ExportReservations(r.Context(), filterFromQuery(r), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("reservations-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func filterFromQuery(r *http.Request) entities.ReservationFilter {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return entities.ReservationFilter{
		Date:   q.Get("date"),
		Status: q.Get("status"),
		Email:  q.Get("email"),
		Limit:  limit,
		Offset: offset,
	}
}
