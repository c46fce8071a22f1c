package repository

import (
	"context"
	"errors"
	"time"

	"trattoria/internal/db"
	"trattoria/internal/entities"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrSlotFull   = errors.New("slot capacity exceeded")
	ErrEmailTaken = errors.New("email already registered")
	// ErrStatusChanged means the row no longer has the status the caller expected.
	ErrStatusChanged = errors.New("reservation status changed")
)

// ReservationStore persists reservations keyed by id.
type ReservationStore interface {
	// CreateReservation inserts res unless the covers already booked for its
	// date and time plus res.PartySize would exceed slotCapacity.
	CreateReservation(ctx context.Context, res *db.Reservation, slotCapacity int) error
	GetReservationByID(ctx context.Context, id string) (*db.Reservation, error)
	// UpdateReservationStatus moves id from status from to status to. It fails
	// with ErrStatusChanged when the stored status is no longer from.
	UpdateReservationStatus(ctx context.Context, id, from, to string, at time.Time) (*db.Reservation, error)
	ListReservationsByUser(ctx context.Context, userID, email string) ([]db.Reservation, error)
	// BookedCovers sums party sizes of non-cancelled reservations per time on date.
	BookedCovers(ctx context.Context, date string) (map[string]int, error)

	ListReservations(ctx context.Context, f entities.ReservationFilter) ([]db.Reservation, int, error)

	ListPendingCreatedBefore(ctx context.Context, before time.Time) ([]db.Reservation, error)
	ListDueReminders(ctx context.Context, date string) ([]db.Reservation, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error

	UpdatePaymentStatusByIntent(ctx context.Context, intentID, status string, at time.Time) (*db.Reservation, error)
}

// UserStore persists customer accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *db.User) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByID(ctx context.Context, id string) (*db.User, error)
}
