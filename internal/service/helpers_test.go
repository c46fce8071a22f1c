package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"trattoria/internal/config"
	"trattoria/internal/db"
	"trattoria/internal/entities"
	"trattoria/internal/repository"
)

var testNow = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

func testConfig() ReservationConfig {
	return ReservationConfig{
		MaxPartySize:        12,
		SlotCapacity:        40,
		BookingWindowMonths: 3,
		CancellationCutoff:  2 * time.Hour,
		Location:            time.UTC,
		Currency:            "eur",
		DefaultCountryCode:  "39",
	}
}

func newTestService(t *testing.T, cfg ReservationConfig) (*ReservationService, *repository.MemoryReservationRepository) {
	t.Helper()
	store := repository.NewMemoryReservationRepository()
	availability := NewAvailabilityService(store, config.DefaultOpeningHours(), cfg.SlotCapacity)
	svc := NewReservationService(store, availability, cfg).WithClock(func() time.Time { return testNow })
	return svc, store
}

func validRequest() entities.ReservationRequest {
	return entities.ReservationRequest{
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		Date:          "2024-06-01",
		Time:          "19:00",
		PartySize:     4,
	}
}

type sentMessage struct {
	ID   string
	Kind MessageKind
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, res db.Reservation, kind MessageKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ID: res.ID, Kind: kind})
	return f.err
}

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// racingStore runs a hook right after a read so a test can change the row
// between the service's read and its write. Each hook fires once.
type racingStore struct {
	repository.ReservationStore
	afterGet         func()
	afterListPending func()
}

func (r *racingStore) GetReservationByID(ctx context.Context, id string) (*db.Reservation, error) {
	res, err := r.ReservationStore.GetReservationByID(ctx, id)
	if hook := r.afterGet; hook != nil {
		r.afterGet = nil
		hook()
	}
	return res, err
}

func (r *racingStore) ListPendingCreatedBefore(ctx context.Context, before time.Time) ([]db.Reservation, error) {
	list, err := r.ReservationStore.ListPendingCreatedBefore(ctx, before)
	if hook := r.afterListPending; hook != nil {
		r.afterListPending = nil
		hook()
	}
	return list, err
}
