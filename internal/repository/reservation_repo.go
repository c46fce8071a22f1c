package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"trattoria/internal/db"
)

// reservationColumns renders the DATE column as text so it scans into a string.
const reservationColumns = `
	id, user_id, customer_name, customer_email, customer_phone,
	to_char(reservation_date, 'YYYY-MM-DD') AS reservation_date, reservation_time,
	party_size, special_requests, status, language,
	payment_intent_id, payment_status, deposit_cents, reminder_sent_at,
	created_at, updated_at`

type ReservationRepository struct {
	DB *sqlx.DB
}

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{DB: db}
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res *db.Reservation, slotCapacity int) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback failed", slog.String("error", rbErr.Error()))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO slot_locks (reservation_date, reservation_time) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		res.Date, res.Time); err != nil {
		return fmt.Errorf("error creating slot lock: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`SELECT 1 FROM slot_locks WHERE reservation_date = $1 AND reservation_time = $2 FOR UPDATE`,
		res.Date, res.Time); err != nil {
		return fmt.Errorf("error locking slot: %w", err)
	}

	var booked int
	if err = tx.GetContext(ctx, &booked, `
		SELECT COALESCE(SUM(party_size), 0)
		FROM reservations
		WHERE reservation_date = $1 AND reservation_time = $2 AND status <> 'cancelled'`,
		res.Date, res.Time); err != nil {
		return fmt.Errorf("error counting booked covers: %w", err)
	}
	if booked+res.PartySize > slotCapacity {
		err = ErrSlotFull
		return err
	}

	query := `
		INSERT INTO reservations
		(id, user_id, customer_name, customer_email, customer_phone, reservation_date, reservation_time,
		 party_size, special_requests, status, language, payment_intent_id, payment_status, deposit_cents,
		 created_at, updated_at)
		VALUES
		(:id, :user_id, :customer_name, :customer_email, :customer_phone, :reservation_date, :reservation_time,
		 :party_size, :special_requests, :status, :language, :payment_intent_id, :payment_status, :deposit_cents,
		 :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, res); err != nil {
		return fmt.Errorf("error inserting reservation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetReservationByID(ctx context.Context, id string) (*db.Reservation, error) {
	var res db.Reservation
	err := r.DB.GetContext(ctx, &res, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying reservation %s: %w", id, err)
	}
	return &res, nil
}

func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id, from, to string, at time.Time) (*db.Reservation, error) {
	var res db.Reservation
	err := r.DB.GetContext(ctx, &res,
		`UPDATE reservations SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2 RETURNING `+reservationColumns,
		id, from, to, at)
	if err == nil {
		return &res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error updating reservation status: %w", err)
	}

	var exists bool
	if err := r.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, id); err != nil {
		return nil, fmt.Errorf("error updating reservation status: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrStatusChanged
}

func (r *ReservationRepository) ListReservationsByUser(ctx context.Context, userID, email string) ([]db.Reservation, error) {
	var out []db.Reservation
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE ($1 <> '' AND user_id::text = $1) OR ($2 <> '' AND lower(customer_email) = $2)
		ORDER BY reservation_date DESC, reservation_time DESC`
	if err := r.DB.SelectContext(ctx, &out, query, userID, strings.ToLower(email)); err != nil {
		return nil, fmt.Errorf("error listing user reservations: %w", err)
	}
	if out == nil {
		out = []db.Reservation{}
	}
	return out, nil
}

func (r *ReservationRepository) BookedCovers(ctx context.Context, date string) (map[string]int, error) {
	rows, err := r.DB.QueryxContext(ctx, `
		SELECT reservation_time, SUM(party_size)
		FROM reservations
		WHERE reservation_date = $1 AND status <> 'cancelled'
		GROUP BY reservation_time`, date)
	if err != nil {
		return nil, fmt.Errorf("error querying booked covers: %w", err)
	}
	defer rows.Close()

	covers := make(map[string]int)
	for rows.Next() {
		var slot string
		var n int
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, fmt.Errorf("error scanning booked covers: %w", err)
		}
		covers[slot] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating booked covers: %w", err)
	}
	return covers, nil
}
