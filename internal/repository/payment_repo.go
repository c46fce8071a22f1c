package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trattoria/internal/db"
)

func (r *ReservationRepository) UpdatePaymentStatusByIntent(ctx context.Context, intentID, status string, at time.Time) (*db.Reservation, error) {
	if intentID == "" {
		return nil, ErrNotFound
	}
	var res db.Reservation
	err := r.DB.GetContext(ctx, &res,
		`UPDATE reservations SET payment_status = $2, updated_at = $3
		 WHERE payment_intent_id = $1 RETURNING `+reservationColumns,
		intentID, status, at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error updating payment status for intent %s: %w", intentID, err)
	}
	return &res, nil
}
