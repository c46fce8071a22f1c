package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"trattoria/internal/db"
	"trattoria/internal/repository"
)

type JobService struct {
	store        repository.ReservationStore
	reservations *ReservationService
	notifier     Notifier
	pendingTTL   time.Duration
	loc          *time.Location
	now          func() time.Time
}

func NewJobService(store repository.ReservationStore, reservations *ReservationService, notifier Notifier, pendingTTL time.Duration, loc *time.Location) *JobService {
	if loc == nil {
		loc = time.UTC
	}
	return &JobService{
		store:        store,
		reservations: reservations,
		notifier:     notifier,
		pendingTTL:   pendingTTL,
		loc:          loc,
		now:          time.Now,
	}
}

// ExpireStalePending cancels pending reservations nobody confirmed within the TTL.
func (s *JobService) ExpireStalePending(ctx context.Context) (int, error) {
	if s.pendingTTL <= 0 {
		return 0, nil
	}
	stale, err := s.store.ListPendingCreatedBefore(ctx, s.now().Add(-s.pendingTTL))
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to list stale pending reservations: %w", err)
	}
	if len(stale) == 0 {
		slog.Debug("cron job: no stale pending reservations")
		return 0, nil
	}

	expired := 0
	for i := range stale {
		if stale[i].Status != db.StatusPending {
			continue
		}
		if _, err := s.reservations.cancel(ctx, &stale[i], "expiry"); err != nil {
			if errors.Is(err, ErrStatusChanged) || errors.Is(err, ErrAlreadyCancelled) {
				slog.Info("cron job: reservation no longer pending, skipped",
					slog.String("reservation_id", stale[i].ID),
				)
				continue
			}
			slog.Error("cron job: failed to expire reservation",
				slog.String("reservation_id", stale[i].ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		expired++
	}
	slog.Info("cron job: expired pending reservations", slog.Int("count", expired))
	return expired, nil
}

// SendReminders notifies confirmed guests booked for tomorrow, once each.
func (s *JobService) SendReminders(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}
	tomorrow := s.now().In(s.loc).AddDate(0, 0, 1).Format("2006-01-02")
	due, err := s.store.ListDueReminders(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to list reminders for %s: %w", tomorrow, err)
	}

	sent := 0
	for _, res := range due {
		if res.Status != db.StatusConfirmed {
			continue
		}
		if err := s.notifier.Notify(ctx, res, MessageReminder); err != nil {
			slog.Warn("cron job: reminder failed",
				slog.String("reservation_id", res.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := s.store.MarkReminderSent(ctx, res.ID, s.now().UTC()); err != nil {
			slog.Error("cron job: failed to mark reminder sent",
				slog.String("reservation_id", res.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
	}
	slog.Info("cron job: reminders sent", slog.String("date", tomorrow), slog.Int("count", sent))
	return sent, nil
}

// Schedule registers both jobs on a cron runner in the restaurant's time zone.
// The caller starts and stops the returned runner.
func (s *JobService) Schedule(ctx context.Context, expireSpec, reminderSpec string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(expireSpec, func() {
		if _, err := s.ExpireStalePending(ctx); err != nil {
			slog.Error("cron job: expire pending failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid expire schedule %q: %w", expireSpec, err)
	}
	if _, err := c.AddFunc(reminderSpec, func() {
		if _, err := s.SendReminders(ctx); err != nil {
			slog.Error("cron job: reminders failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", reminderSpec, err)
	}
	return c, nil
}
