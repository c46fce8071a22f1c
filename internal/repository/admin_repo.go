package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"trattoria/internal/db"
	"trattoria/internal/entities"
)

func (r *ReservationRepository) ListReservations(ctx context.Context, f entities.ReservationFilter) ([]db.Reservation, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1

	if f.Date != "" {
		where += " AND reservation_date = $" + strconv.Itoa(idx)
		args = append(args, f.Date)
		idx++
	}
	if f.Status != "" {
		where += " AND status = $" + strconv.Itoa(idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Email != "" {
		where += " AND lower(customer_email) = $" + strconv.Itoa(idx)
		args = append(args, strings.ToLower(f.Email))
		idx++
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM reservations"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting reservations: %w", err)
	}

	query := "SELECT " + reservationColumns + " FROM reservations" + where +
		" ORDER BY reservation_date DESC, reservation_time DESC"
	if f.Limit > 0 {
		query += " LIMIT $" + strconv.Itoa(idx) + " OFFSET $" + strconv.Itoa(idx+1)
		args = append(args, f.Limit, f.Offset)
	}

	var out []db.Reservation
	if err := r.DB.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing reservations: %w", err)
	}
	if out == nil {
		out = []db.Reservation{}
	}
	return out, total, nil
}
