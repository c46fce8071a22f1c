package entities

import "trattoria/internal/db"

type ReservationsList struct {
	Total        int              `json:"total"`
	Limit        int              `json:"limit"`
	Offset       int              `json:"offset"`
	Reservations []db.Reservation `json:"reservations"`
}

// ReservationFilter narrows admin listings. Empty fields match everything.
type ReservationFilter struct {
	Date   string
	Status string
	Email  string
	Limit  int
	Offset int
}
