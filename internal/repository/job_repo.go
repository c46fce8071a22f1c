package repository

import (
	"context"
	"fmt"
	"time"

	"trattoria/internal/db"
)

// ListPendingCreatedBefore returns pending reservations created before the cutoff.
func (r *ReservationRepository) ListPendingCreatedBefore(ctx context.Context, before time.Time) ([]db.Reservation, error) {
	var out []db.Reservation
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE status = 'pending' AND created_at < $1`
	if err := r.DB.SelectContext(ctx, &out, query, before); err != nil {
		return nil, fmt.Errorf("error querying stale pending reservations: %w", err)
	}
	return out, nil
}

// ListDueReminders returns confirmed reservations on date that have not been reminded yet.
func (r *ReservationRepository) ListDueReminders(ctx context.Context, date string) ([]db.Reservation, error) {
	var out []db.Reservation
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status = 'confirmed' AND reservation_date = $1 AND reminder_sent_at IS NULL
		ORDER BY reservation_time`
	if err := r.DB.SelectContext(ctx, &out, query, date); err != nil {
		return nil, fmt.Errorf("error querying due reminders: %w", err)
	}
	return out, nil
}

func (r *ReservationRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE reservations SET reminder_sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("error marking reminder sent: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
