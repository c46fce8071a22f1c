package entities

import "trattoria/internal/db"

// Booking is the result of a successful reservation request. Deposit is set
// when the party size requires a prepayment.
type Booking struct {
	db.Reservation
	Deposit *PaymentIntent `json:"deposit,omitempty"`
}
