package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"trattoria/internal/db"
	"trattoria/internal/entities"
)

// MemoryReservationRepository keeps reservations in process memory. It backs
// tests and local runs without DATABASE_URL.
type MemoryReservationRepository struct {
	mu   sync.Mutex
	byID map[string]db.Reservation
}

func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{byID: make(map[string]db.Reservation)}
}

func (m *MemoryReservationRepository) CreateReservation(_ context.Context, res *db.Reservation, slotCapacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	booked := 0
	for _, r := range m.byID {
		if r.Date == res.Date && r.Time == res.Time && r.Status != db.StatusCancelled {
			booked += r.PartySize
		}
	}
	if booked+res.PartySize > slotCapacity {
		return ErrSlotFull
	}
	m.byID[res.ID] = *res
	return nil
}

func (m *MemoryReservationRepository) GetReservationByID(_ context.Context, id string) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryReservationRepository) UpdateReservationStatus(_ context.Context, id, from, to string, at time.Time) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != from {
		return nil, ErrStatusChanged
	}
	r.Status = to
	r.UpdatedAt = at
	m.byID[id] = r
	return &r, nil
}

func (m *MemoryReservationRepository) ListReservationsByUser(_ context.Context, userID, email string) ([]db.Reservation, error) {
	email = strings.ToLower(email)
	return m.filter(func(r db.Reservation) bool {
		if userID != "" && r.UserID != nil && *r.UserID == userID {
			return true
		}
		return email != "" && strings.ToLower(r.CustomerEmail) == email
	}), nil
}

func (m *MemoryReservationRepository) BookedCovers(_ context.Context, date string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	covers := make(map[string]int)
	for _, r := range m.byID {
		if r.Date == date && r.Status != db.StatusCancelled {
			covers[r.Time] += r.PartySize
		}
	}
	return covers, nil
}

func (m *MemoryReservationRepository) ListReservations(_ context.Context, f entities.ReservationFilter) ([]db.Reservation, int, error) {
	all := m.filter(func(r db.Reservation) bool {
		if f.Date != "" && r.Date != f.Date {
			return false
		}
		if f.Status != "" && r.Status != f.Status {
			return false
		}
		if f.Email != "" && !strings.EqualFold(r.CustomerEmail, f.Email) {
			return false
		}
		return true
	})
	total := len(all)
	if f.Limit > 0 {
		start := min(f.Offset, total)
		end := min(start+f.Limit, total)
		all = all[start:end]
	}
	return all, total, nil
}

func (m *MemoryReservationRepository) ListPendingCreatedBefore(_ context.Context, before time.Time) ([]db.Reservation, error) {
	return m.filter(func(r db.Reservation) bool {
		return r.Status == db.StatusPending && r.CreatedAt.Before(before)
	}), nil
}

func (m *MemoryReservationRepository) ListDueReminders(_ context.Context, date string) ([]db.Reservation, error) {
	return m.filter(func(r db.Reservation) bool {
		return r.Status == db.StatusConfirmed && r.Date == date && r.ReminderSentAt == nil
	}), nil
}

func (m *MemoryReservationRepository) MarkReminderSent(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.ReminderSentAt = &at
	m.byID[id] = r
	return nil
}

func (m *MemoryReservationRepository) UpdatePaymentStatusByIntent(_ context.Context, intentID, status string, at time.Time) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.byID {
		if intentID != "" && r.PaymentIntentID == intentID {
			r.PaymentStatus = status
			r.UpdatedAt = at
			m.byID[id] = r
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

// filter returns matching reservations, newest slot first.
func (m *MemoryReservationRepository) filter(keep func(db.Reservation) bool) []db.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []db.Reservation{}
	for _, r := range m.byID {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time > out[j].Time
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
