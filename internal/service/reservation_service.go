package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"trattoria/internal/db"
	"trattoria/internal/entities"
	"trattoria/internal/metrics"
	"trattoria/internal/repository"
	"trattoria/internal/utils"
)

const (
	maxSpecialRequestRunes = 500
	maxSanitizePasses      = 5
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type ReservationConfig struct {
	MaxPartySize         int
	SlotCapacity         int
	BookingWindowMonths  int
	CancellationCutoff   time.Duration
	RequireApproval      bool
	Location             *time.Location
	DepositMinPartySize  int
	DepositPerGuestCents int64
	Currency             string
	DefaultCountryCode   string
}

// Requester identifies who is asking for a reservation: a signed-in customer,
// a guest proving ownership by email, or both.
type Requester struct {
	UserID string
	Email  string
}

func (r Requester) owns(res *db.Reservation) bool {
	if r.UserID != "" && res.UserID != nil && *res.UserID == r.UserID {
		return true
	}
	return r.Email != "" && strings.EqualFold(strings.TrimSpace(r.Email), res.CustomerEmail)
}

type ReservationService struct {
	store        repository.ReservationStore
	availability *AvailabilityService
	payments     PaymentGateway
	notifier     Notifier
	metrics      metrics.Recorder
	cfg          ReservationConfig
	policy       *bluemonday.Policy

	now   func() time.Time
	newID func() string

	wg sync.WaitGroup
}

func NewReservationService(store repository.ReservationStore, availability *AvailabilityService, cfg ReservationConfig) *ReservationService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReservationService{
		store:        store,
		availability: availability,
		metrics:      metrics.Nop{},
		cfg:          cfg,
		policy:       bluemonday.StrictPolicy(),
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
	}
}

func (s *ReservationService) WithPayments(g PaymentGateway) *ReservationService {
	s.payments = g
	return s
}

func (s *ReservationService) WithNotifier(n Notifier) *ReservationService {
	s.notifier = n
	return s
}

func (s *ReservationService) WithMetrics(m metrics.Recorder) *ReservationService {
	s.metrics = m
	return s
}

// WithClock replaces the wall clock used for booking windows and cutoffs.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// Wait blocks until in-flight notifications finish.
func (s *ReservationService) Wait() {
	s.wg.Wait()
}

// CreateReservation validates req, checks the slot still seats the party and
// stores the reservation. userID links it to a customer account when set.
func (s *ReservationService) CreateReservation(ctx context.Context, req entities.ReservationRequest, userID string) (*entities.Booking, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)

	if err := s.validateRequest(&req); err != nil {
		s.metrics.ReservationRejected("invalid")
		return nil, err
	}

	available, err := s.availability.GetAvailableTimeSlots(ctx, req.Date, req.PartySize)
	if err != nil {
		return nil, fmt.Errorf("error resolving availability: %w", err)
	}
	if !slices.Contains(available, req.Time) {
		s.metrics.ReservationRejected("slot_unavailable")
		return nil, ErrSlotUnavailable
	}

	now := s.now().UTC()
	status := db.StatusConfirmed
	if s.cfg.RequireApproval {
		status = db.StatusPending
	}
	res := &db.Reservation{
		ID:              s.newID(),
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		Date:            req.Date,
		Time:            req.Time,
		PartySize:       req.PartySize,
		SpecialRequests: s.sanitizeSpecialRequests(req.SpecialRequests),
		Status:          status,
		Language:        utils.NormalizeLanguage(req.Language),
		PaymentStatus:   db.PaymentNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if userID != "" {
		res.UserID = &userID
	}

	deposit, err := s.requestDeposit(ctx, res)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateReservation(ctx, res, s.cfg.SlotCapacity); err != nil {
		if deposit != nil {
			s.releaseDeposit(ctx, res)
		}
		if errors.Is(err, repository.ErrSlotFull) {
			s.metrics.ReservationRejected("slot_unavailable")
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("error creating reservation: %w", err)
	}

	s.availability.Invalidate(ctx, res.Date)
	s.metrics.ReservationCreated(res.Status, res.PartySize)
	slog.Info("reservation created",
		slog.String("reservation_id", res.ID),
		slog.String("date", res.Date),
		slog.String("time", res.Time),
		slog.Int("party_size", res.PartySize),
		slog.String("status", res.Status),
	)
	s.notifyAsync(*res, MessageCreated)

	return &entities.Booking{Reservation: *res, Deposit: deposit}, nil
}

func (s *ReservationService) validateRequest(req *entities.ReservationRequest) error {
	verr := &ValidationError{}
	if err := validate.Struct(req); err != nil {
		var fields *ValidationError
		if !errors.As(toValidationError(err), &fields) {
			return err
		}
		verr = fields
	}

	if s.cfg.MaxPartySize > 0 && req.PartySize > s.cfg.MaxPartySize {
		verr.add("partySize", "must be at most "+strconv.Itoa(s.cfg.MaxPartySize))
	}

	if req.CustomerPhone != "" {
		phone, err := utils.NormalizePhone(req.CustomerPhone, s.cfg.DefaultCountryCode)
		if err != nil {
			verr.add("customerPhone", "must be a valid phone number")
		} else {
			req.CustomerPhone = phone
		}
	}

	if _, bad := verr.Fields["date"]; !bad {
		if msg := s.checkBookingWindow(req.Date); msg != "" {
			verr.add("date", msg)
		}
	}

	_, badDate := verr.Fields["date"]
	_, badTime := verr.Fields["time"]
	if !badDate && !badTime {
		schedule, err := s.availability.ScheduledSlots(req.Date)
		if err != nil {
			return err
		}
		if len(schedule) == 0 {
			verr.add("date", "the restaurant is closed on this day")
		} else if !slices.Contains(schedule, req.Time) {
			verr.add("time", "is not one of the offered time slots")
		}
	}

	return verr.orNil()
}

// checkBookingWindow returns a message when date falls outside
// [today, today+BookingWindowMonths] in the restaurant's time zone.
func (s *ReservationService) checkBookingWindow(date string) string {
	day, err := time.ParseInLocation("2006-01-02", date, s.cfg.Location)
	if err != nil {
		return "must be a date in YYYY-MM-DD format"
	}
	now := s.now().In(s.cfg.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
	if day.Before(today) {
		return "must not be in the past"
	}
	if s.cfg.BookingWindowMonths > 0 && day.After(today.AddDate(0, s.cfg.BookingWindowMonths, 0)) {
		return "must be within " + strconv.Itoa(s.cfg.BookingWindowMonths) + " months from today"
	}
	return ""
}

// sanitizeSpecialRequests stores special requests as plain text with no
// markup left in it, even once entities are decoded.
func (s *ReservationService) sanitizeSpecialRequests(text string) string {
	clean := text
	stable := false
	for pass := 0; pass < maxSanitizePasses; pass++ {
		next := html.UnescapeString(s.policy.Sanitize(clean))
		if next == clean {
			stable = true
			break
		}
		clean = next
	}
	if !stable {
		clean = s.policy.Sanitize(clean)
	}
	clean = strings.TrimSpace(clean)
	if utf8.RuneCountInString(clean) > maxSpecialRequestRunes {
		clean = string([]rune(clean)[:maxSpecialRequestRunes])
	}
	return clean
}

func (s *ReservationService) requestDeposit(ctx context.Context, res *db.Reservation) (*entities.PaymentIntent, error) {
	if s.payments == nil || s.cfg.DepositMinPartySize <= 0 || s.cfg.DepositPerGuestCents <= 0 {
		return nil, nil
	}
	if res.PartySize < s.cfg.DepositMinPartySize {
		return nil, nil
	}
	amount := int64(res.PartySize) * s.cfg.DepositPerGuestCents
	intent, err := s.payments.CreateIntent(ctx, amount, s.cfg.Currency, map[string]string{
		"reservation_id": res.ID,
		"date":           res.Date,
		"time":           res.Time,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating deposit: %w", err)
	}
	res.PaymentIntentID = intent.ID
	res.PaymentStatus = db.PaymentRequired
	res.DepositCents = amount
	return intent, nil
}

// releaseDeposit unwinds the deposit of a reservation that will not happen.
func (s *ReservationService) releaseDeposit(ctx context.Context, res *db.Reservation) string {
	if s.payments == nil || res.PaymentIntentID == "" {
		return res.PaymentStatus
	}
	var err error
	next := res.PaymentStatus
	switch res.PaymentStatus {
	case db.PaymentPaid:
		err = s.payments.Refund(ctx, res.PaymentIntentID)
		next = db.PaymentRefunded
	case db.PaymentRequired, db.PaymentFailed:
		err = s.payments.CancelIntent(ctx, res.PaymentIntentID)
		next = db.PaymentNone
	default:
		return res.PaymentStatus
	}
	if err != nil {
		slog.Error("failed to release deposit",
			slog.String("reservation_id", res.ID),
			slog.String("payment_intent_id", res.PaymentIntentID),
			slog.String("error", err.Error()),
		)
		return res.PaymentStatus
	}
	return next
}

// GetReservation returns the reservation when the requester owns it.
func (s *ReservationService) GetReservation(ctx context.Context, id string, who Requester) (*db.Reservation, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !who.owns(res) {
		return nil, ErrReservationNotFound
	}
	return res, nil
}

// GetUserReservations lists the requester's reservations, newest first.
func (s *ReservationService) GetUserReservations(ctx context.Context, who Requester) ([]db.Reservation, error) {
	if who.UserID == "" && who.Email == "" {
		return []db.Reservation{}, nil
	}
	list, err := s.store.ListReservationsByUser(ctx, who.UserID, strings.TrimSpace(who.Email))
	if err != nil {
		return nil, fmt.Errorf("error listing reservations: %w", err)
	}
	return list, nil
}

// CancelReservation cancels a reservation owned by the requester. The stored
// record is returned with status cancelled.
func (s *ReservationService) CancelReservation(ctx context.Context, id string, who Requester) (*db.Reservation, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !who.owns(res) {
		return nil, ErrReservationNotFound
	}
	if res.Status == db.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	start, err := res.StartsAt(s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("error reading reservation time: %w", err)
	}
	if s.now().After(start.Add(-s.cfg.CancellationCutoff)) {
		return nil, ErrCancellationClosed
	}
	return s.cancel(ctx, res, "customer")
}

// AdminCancel cancels any reservation regardless of the cutoff.
func (s *ReservationService) AdminCancel(ctx context.Context, id string) (*db.Reservation, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == db.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	return s.cancel(ctx, res, "admin")
}

func (s *ReservationService) cancel(ctx context.Context, res *db.Reservation, by string) (*db.Reservation, error) {
	now := s.now().UTC()
	updated, err := s.store.UpdateReservationStatus(ctx, res.ID, res.Status, db.StatusCancelled, now)
	if err != nil {
		return nil, s.transitionError(ctx, res.ID, err, "error cancelling reservation")
	}

	if next := s.releaseDeposit(ctx, updated); next != updated.PaymentStatus {
		if paid, err := s.store.UpdatePaymentStatusByIntent(ctx, updated.PaymentIntentID, next, now); err != nil {
			slog.Error("failed to store payment status",
				slog.String("reservation_id", updated.ID),
				slog.String("error", err.Error()),
			)
		} else {
			updated = paid
		}
	}

	s.availability.Invalidate(ctx, updated.Date)
	s.metrics.ReservationCancelled()
	slog.Info("reservation cancelled",
		slog.String("reservation_id", updated.ID),
		slog.String("cancelled_by", by),
	)
	s.notifyAsync(*updated, MessageCancelled)
	return updated, nil
}

// ConfirmReservation approves a pending reservation.
func (s *ReservationService) ConfirmReservation(ctx context.Context, id string) (*db.Reservation, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != db.StatusPending {
		return nil, ErrInvalidTransition
	}
	updated, err := s.store.UpdateReservationStatus(ctx, res.ID, db.StatusPending, db.StatusConfirmed, s.now().UTC())
	if err != nil {
		return nil, s.transitionError(ctx, res.ID, err, "error confirming reservation")
	}
	slog.Info("reservation confirmed", slog.String("reservation_id", updated.ID))
	s.notifyAsync(*updated, MessageConfirmed)
	return updated, nil
}

// transitionError maps a failed status update. A row that moved under us is
// reported as already cancelled when that is where it ended up.
func (s *ReservationService) transitionError(ctx context.Context, id string, err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrReservationNotFound
	case errors.Is(err, repository.ErrStatusChanged):
		if current, lerr := s.store.GetReservationByID(ctx, id); lerr == nil && current.Status == db.StatusCancelled {
			return ErrAlreadyCancelled
		}
		return ErrStatusChanged
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// ListReservations pages through reservations for the admin back office.
func (s *ReservationService) ListReservations(ctx context.Context, f entities.ReservationFilter) (*entities.ReservationsList, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	f.Limit = min(f.Limit, maxListLimit)
	f.Offset = max(f.Offset, 0)
	if f.Status != "" && !slices.Contains([]string{db.StatusPending, db.StatusConfirmed, db.StatusCancelled}, f.Status) {
		return nil, &ValidationError{Fields: map[string]string{"status": "must be one of: pending confirmed cancelled"}}
	}

	list, total, err := s.store.ListReservations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("error listing reservations: %w", err)
	}
	return &entities.ReservationsList{
		Total:        total,
		Limit:        f.Limit,
		Offset:       f.Offset,
		Reservations: list,
	}, nil
}

// MarkPaymentStatus records a gateway outcome for the reservation holding intentID.
func (s *ReservationService) MarkPaymentStatus(ctx context.Context, intentID, status string) (*db.Reservation, error) {
	res, err := s.store.UpdatePaymentStatusByIntent(ctx, intentID, status, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("error updating payment status: %w", err)
	}
	slog.Info("reservation payment updated",
		slog.String("reservation_id", res.ID),
		slog.String("payment_status", status),
	)
	return res, nil
}

func (s *ReservationService) load(ctx context.Context, id string) (*db.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrReservationNotFound
	}
	res, err := s.store.GetReservationByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("error loading reservation: %w", err)
	}
	return res, nil
}

func (s *ReservationService) notifyAsync(res db.Reservation, kind MessageKind) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, res, kind); err != nil {
			slog.Warn("failed to notify customer",
				slog.String("reservation_id", res.ID),
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
		}
	}()
}
