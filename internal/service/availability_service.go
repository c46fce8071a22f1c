package service

import (
	"context"
	"log/slog"
	"time"

	"trattoria/internal/config"
	"trattoria/internal/metrics"
	"trattoria/internal/repository"
)

// CoversCache caches booked covers per date.
type CoversCache interface {
	Get(ctx context.Context, date string) (map[string]int, bool, error)
	Set(ctx context.Context, date string, covers map[string]int) error
	Invalidate(ctx context.Context, date string) error
}

// AvailabilityService resolves the bookable start times of a date from the
// opening hours minus what is already booked.
type AvailabilityService struct {
	store        repository.ReservationStore
	hours        config.OpeningHours
	slotCapacity int
	cache        CoversCache
	metrics      metrics.Recorder
}

func NewAvailabilityService(store repository.ReservationStore, hours config.OpeningHours, slotCapacity int) *AvailabilityService {
	return &AvailabilityService{
		store:        store,
		hours:        hours,
		slotCapacity: slotCapacity,
		metrics:      metrics.Nop{},
	}
}

func (s *AvailabilityService) WithCache(c CoversCache) *AvailabilityService {
	s.cache = c
	return s
}

func (s *AvailabilityService) WithMetrics(m metrics.Recorder) *AvailabilityService {
	s.metrics = m
	return s
}

// GetAvailableTimeSlots returns the ascending "HH:MM" start times on date that
// still seat partySize guests. A partySize below 1 is treated as 1. Past dates
// are not rejected here.
func (s *AvailabilityService) GetAvailableTimeSlots(ctx context.Context, date string, partySize int) ([]string, error) {
	schedule, err := s.ScheduledSlots(date)
	if err != nil {
		return nil, err
	}
	if len(schedule) == 0 {
		return []string{}, nil
	}

	covers, err := s.bookedCovers(ctx, date)
	if err != nil {
		return nil, err
	}

	need := max(partySize, 1)
	slots := make([]string, 0, len(schedule))
	for _, slot := range schedule {
		if s.slotCapacity-covers[slot] >= need {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// ScheduledSlots lists every start time the opening hours offer on date,
// ignoring bookings.
func (s *AvailabilityService) ScheduledSlots(date string) ([]string, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"date": "must be a date in YYYY-MM-DD format"}}
	}

	hours := s.hours.For(day.Weekday())
	if hours.Closed {
		return []string{}, nil
	}
	open, err := time.Parse("15:04", hours.Open)
	if err != nil {
		return nil, err
	}
	last, err := time.Parse("15:04", hours.LastSeating)
	if err != nil {
		return nil, err
	}

	step := time.Duration(s.hours.SlotMinutes) * time.Minute
	if step <= 0 {
		step = 30 * time.Minute
	}
	var slots []string
	for t := open; !t.After(last); t = t.Add(step) {
		slots = append(slots, t.Format("15:04"))
	}
	return slots, nil
}

// Invalidate drops cached covers for date after a booking changes.
func (s *AvailabilityService) Invalidate(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, date); err != nil {
		slog.Warn("failed to invalidate availability cache",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AvailabilityService) bookedCovers(ctx context.Context, date string) (map[string]int, error) {
	if s.cache != nil {
		covers, ok, err := s.cache.Get(ctx, date)
		if err != nil {
			slog.Warn("availability cache read failed", slog.String("error", err.Error()))
		} else if ok {
			s.metrics.AvailabilityLookup(true)
			return covers, nil
		}
	}
	s.metrics.AvailabilityLookup(false)

	covers, err := s.store.BookedCovers(ctx, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, date, covers); err != nil {
			slog.Warn("availability cache write failed", slog.String("error", err.Error()))
		}
	}
	return covers, nil
}
