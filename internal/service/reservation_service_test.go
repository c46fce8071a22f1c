package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trattoria/internal/db"
	"trattoria/internal/entities"
)

func TestCreateReservation_ConfirmedAndEchoed(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	req := validRequest()
	req.SpecialRequests = "Window table, please"

	booking, err := svc.CreateReservation(context.Background(), req, "")
	require.NoError(t, err)

	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, db.StatusConfirmed, booking.Status)
	assert.Equal(t, "Jane Doe", booking.CustomerName)
	assert.Equal(t, "2024-06-01", booking.Date)
	assert.Equal(t, "19:00", booking.Time)
	assert.Equal(t, 4, booking.PartySize)
	assert.Equal(t, "Window table, please", booking.SpecialRequests)
	assert.Equal(t, testNow, booking.CreatedAt)
	assert.Equal(t, testNow, booking.UpdatedAt)
	assert.Nil(t, booking.Deposit)
}

func TestCreateReservation_IDsAreUnique(t *testing.T) {
	cfg := testConfig()
	cfg.SlotCapacity = 100000
	svc, _ := newTestService(t, cfg)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		req := validRequest()
		req.PartySize = 1
		booking, err := svc.CreateReservation(context.Background(), req, "")
		require.NoError(t, err)
		seen[booking.ID] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestCreateReservation_Validation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*entities.ReservationRequest)
		field string
	}{
		{"missing name", func(r *entities.ReservationRequest) { r.CustomerName = "  " }, "customerName"},
		{"bad email", func(r *entities.ReservationRequest) { r.CustomerEmail = "jane.example.com" }, "customerEmail"},
		{"zero party", func(r *entities.ReservationRequest) { r.PartySize = 0 }, "partySize"},
		{"party too large", func(r *entities.ReservationRequest) { r.PartySize = 13 }, "partySize"},
		{"bad date format", func(r *entities.ReservationRequest) { r.Date = "01/06/2024" }, "date"},
		{"past date", func(r *entities.ReservationRequest) { r.Date = "2024-05-19" }, "date"},
		{"beyond window", func(r *entities.ReservationRequest) { r.Date = "2024-08-21" }, "date"},
		{"time not offered", func(r *entities.ReservationRequest) { r.Time = "16:00" }, "time"},
		{"bad time format", func(r *entities.ReservationRequest) { r.Time = "7pm" }, "time"},
		{"bad phone", func(r *entities.ReservationRequest) { r.CustomerPhone = "12" }, "customerPhone"},
		{"unknown language", func(r *entities.ReservationRequest) { r.Language = "fr" }, "language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, testConfig())
			req := validRequest()
			tt.edit(&req)

			_, err := svc.CreateReservation(context.Background(), req, "")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)

			list, _, err := store.ListReservations(context.Background(), entities.ReservationFilter{})
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreateReservation_WindowEdgesAccepted(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	for _, date := range []string{"2024-05-20", "2024-08-20"} {
		req := validRequest()
		req.Date = date
		_, err := svc.CreateReservation(context.Background(), req, "")
		assert.NoError(t, err, date)
	}
}

func TestCreateReservation_NormalizesInput(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	req := validRequest()
	req.CustomerEmail = " Jane@Example.COM "
	req.CustomerPhone = "333 123 4567"
	req.SpecialRequests = "<b>No nuts</b> & <script>alert(1)</script>gluten free"
	req.Language = "it"

	booking, err := svc.CreateReservation(context.Background(), req, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", booking.CustomerEmail)
	assert.Equal(t, "+393331234567", booking.CustomerPhone)
	assert.Equal(t, "No nuts & gluten free", booking.SpecialRequests)
	assert.Equal(t, "it", booking.Language)
	require.NotNil(t, booking.UserID)
	assert.Equal(t, "user-1", *booking.UserID)
}

func TestCreateReservation_SpecialRequestsEncodedMarkup(t *testing.T) {
	svc, _ := newTestService(t, testConfig())

	tests := []struct {
		input string
		want  string
	}{
		{"&lt;b&gt;Birthday&lt;/b&gt; &lt;3", "Birthday <3"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;Window seat", "Window seat"},
		{"&amp;lt;i&amp;gt;Quiet&amp;lt;/i&amp;gt; table", "Quiet table"},
		{"Fish & chips", "Fish & chips"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			req := validRequest()
			req.SpecialRequests = tt.input
			booking, err := svc.CreateReservation(context.Background(), req, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, booking.SpecialRequests)
			assert.NotContains(t, booking.SpecialRequests, "<script")
		})
	}
}

func TestCreateReservation_SpecialRequestsCapped(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	req := validRequest()
	req.SpecialRequests = strings.Repeat("è", 600)

	booking, err := svc.CreateReservation(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, 500, len([]rune(booking.SpecialRequests)))
}

func TestCreateReservation_SlotCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.SlotCapacity = 6
	svc, _ := newTestService(t, cfg)

	_, err := svc.CreateReservation(context.Background(), validRequest(), "")
	require.NoError(t, err)

	_, err = svc.CreateReservation(context.Background(), validRequest(), "")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	req := validRequest()
	req.PartySize = 2
	_, err = svc.CreateReservation(context.Background(), req, "")
	assert.NoError(t, err, "the remaining covers still fit a smaller party")

	slots, err := svc.availability.GetAvailableTimeSlots(context.Background(), "2024-06-01", 1)
	require.NoError(t, err)
	assert.NotContains(t, slots, "19:00")
}

func TestCreateReservation_RequireApproval(t *testing.T) {
	cfg := testConfig()
	cfg.RequireApproval = true
	svc, _ := newTestService(t, cfg)

	booking, err := svc.CreateReservation(context.Background(), validRequest(), "")
	require.NoError(t, err)
	assert.Equal(t, db.StatusPending, booking.Status)

	confirmed, err := svc.ConfirmReservation(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, confirmed.Status)

	_, err = svc.ConfirmReservation(context.Background(), booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmReservation_CancelledMeanwhile(t *testing.T) {
	cfg := testConfig()
	cfg.RequireApproval = true
	cfg.SlotCapacity = 6
	svc, store := newTestService(t, cfg)
	ctx := context.Background()

	pending, err := svc.CreateReservation(ctx, validRequest(), "")
	require.NoError(t, err)

	race := &racingStore{ReservationStore: store}
	race.afterGet = func() {
		_, err := store.UpdateReservationStatus(ctx, pending.ID, db.StatusPending, db.StatusCancelled, testNow)
		require.NoError(t, err)
		other := validRequest()
		other.CustomerEmail = "ann@example.com"
		_, err = svc.CreateReservation(ctx, other, "")
		require.NoError(t, err)
	}
	svc.store = race

	_, err = svc.ConfirmReservation(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	got, err := store.GetReservationByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, got.Status)

	covers, err := store.BookedCovers(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 4, covers["19:00"])
}

func TestCancelReservation_ConfirmedMeanwhile(t *testing.T) {
	cfg := testConfig()
	cfg.RequireApproval = true
	svc, store := newTestService(t, cfg)
	ctx := context.Background()

	pending, err := svc.CreateReservation(ctx, validRequest(), "")
	require.NoError(t, err)

	svc.store = &racingStore{ReservationStore: store, afterGet: func() {
		_, err := store.UpdateReservationStatus(ctx, pending.ID, db.StatusPending, db.StatusConfirmed, testNow)
		require.NoError(t, err)
	}}

	_, err = svc.AdminCancel(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrStatusChanged)

	got, err := store.GetReservationByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, got.Status)

	cancelled, err := svc.AdminCancel(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)
}

func TestCreateReservation_Deposit(t *testing.T) {
	cfg := testConfig()
	cfg.DepositMinPartySize = 8
	cfg.DepositPerGuestCents = 1000
	gateway := NewSimulatedGateway()
	svc, _ := newTestService(t, cfg)
	svc.WithPayments(gateway)

	small, err := svc.CreateReservation(context.Background(), validRequest(), "")
	require.NoError(t, err)
	assert.Nil(t, small.Deposit)
	assert.Equal(t, db.PaymentNone, small.PaymentStatus)

	req := validRequest()
	req.PartySize = 8
	big, err := svc.CreateReservation(context.Background(), req, "")
	require.NoError(t, err)
	require.NotNil(t, big.Deposit)
	assert.Equal(t, int64(8000), big.Deposit.Amount)
	assert.Equal(t, "eur", big.Deposit.Currency)
	assert.Equal(t, big.ID, big.Deposit.Metadata["reservation_id"])
	assert.Equal(t, db.PaymentRequired, big.PaymentStatus)
	assert.Equal(t, big.Deposit.ID, big.PaymentIntentID)

	cancelled, err := svc.CancelReservation(context.Background(), big.ID, Requester{Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, db.PaymentNone, cancelled.PaymentStatus)
	intent, ok := gateway.Intent(big.Deposit.ID)
	require.True(t, ok)
	assert.Equal(t, "canceled", intent.Status)
}

func TestCreateReservation_DepositReleasedWhenSlotFills(t *testing.T) {
	cfg := testConfig()
	cfg.SlotCapacity = 10
	cfg.DepositMinPartySize = 8
	cfg.DepositPerGuestCents = 500
	gateway := NewSimulatedGateway()
	svc, store := newTestService(t, cfg)
	svc.WithPayments(gateway)

	// Someone else books the slot between the availability check and the insert.
	require.NoError(t, store.CreateReservation(context.Background(), &db.Reservation{
		ID: "00000000-0000-0000-0000-000000000001", Date: "2024-06-01", Time: "19:00",
		PartySize: 2, Status: db.StatusConfirmed,
	}, 10))
	var intentID string
	svc.payments = gatewayHook{PaymentGateway: gateway, onCreate: func(id string) {
		intentID = id
		store.CreateReservation(context.Background(), &db.Reservation{
			ID: "00000000-0000-0000-0000-000000000003", Date: "2024-06-01", Time: "19:00",
			PartySize: 2, Status: db.StatusConfirmed,
		}, 10)
	}}

	req := validRequest()
	req.PartySize = 8
	_, err := svc.CreateReservation(context.Background(), req, "")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	intent, ok := gateway.Intent(intentID)
	require.True(t, ok)
	assert.Equal(t, "canceled", intent.Status)
}

type gatewayHook struct {
	PaymentGateway
	onCreate func(id string)
}

func (g gatewayHook) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*entities.PaymentIntent, error) {
	intent, err := g.PaymentGateway.CreateIntent(ctx, amount, currency, metadata)
	if err == nil {
		g.onCreate(intent.ID)
	}
	return intent, err
}

func TestCancelReservation_KeepsRecord(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	req := validRequest()
	req.SpecialRequests = "Birthday"
	booking, err := svc.CreateReservation(context.Background(), req, "")
	require.NoError(t, err)

	cancelled, err := svc.CancelReservation(context.Background(), booking.ID, Requester{Email: "JANE@example.com"})
	require.NoError(t, err)

	assert.Equal(t, booking.ID, cancelled.ID)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)
	assert.Equal(t, "Jane Doe", cancelled.CustomerName)
	assert.Equal(t, "jane@example.com", cancelled.CustomerEmail)
	assert.Equal(t, "2024-06-01", cancelled.Date)
	assert.Equal(t, "19:00", cancelled.Time)
	assert.Equal(t, 4, cancelled.PartySize)
	assert.Equal(t, "Birthday", cancelled.SpecialRequests)

	stored, err := svc.GetReservation(context.Background(), booking.ID, Requester{Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, stored.Status)

	_, err = svc.CancelReservation(context.Background(), booking.ID, Requester{Email: "jane@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestCancelReservation_FreesCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.SlotCapacity = 4
	svc, _ := newTestService(t, cfg)

	booking, err := svc.CreateReservation(context.Background(), validRequest(), "")
	require.NoError(t, err)
	_, err = svc.CreateReservation(context.Background(), validRequest(), "")
	require.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = svc.CancelReservation(context.Background(), booking.ID, Requester{Email: "jane@example.com"})
	require.NoError(t, err)

	_, err = svc.CreateReservation(context.Background(), validRequest(), "")
	assert.NoError(t, err)
}

func TestCancelReservation_Ownership(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	booking, err := svc.CreateReservation(context.Background(), validRequest(), "user-1")
	require.NoError(t, err)

	_, err = svc.CancelReservation(context.Background(), booking.ID, Requester{Email: "someone@example.com"})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	_, err = svc.CancelReservation(context.Background(), booking.ID, Requester{})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	cancelled, err := svc.CancelReservation(context.Background(), booking.ID, Requester{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)
}

func TestCancelReservation_UnknownOrMalformedID(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	who := Requester{Email: "jane@example.com"}

	_, err := svc.CancelReservation(context.Background(), "not-a-uuid", who)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	_, err = svc.CancelReservation(context.Background(), "6f1c2a57-1b7a-4f53-9a43-2b2f7f0c9d10", who)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestCancelReservation_Cutoff(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	booking, err := svc.CreateReservation(context.Background(), validRequest(), "")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2024, 6, 1, 17, 30, 0, 0, time.UTC) }
	_, err = svc.CancelReservation(context.Background(), booking.ID, Requester{Email: "jane@example.com"})
	assert.ErrorIs(t, err, ErrCancellationClosed)

	cancelled, err := svc.AdminCancel(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)
}

func TestGetUserReservations(t *testing.T) {
	svc, _ := newTestService(t, testConfig())

	list, err := svc.GetUserReservations(context.Background(), Requester{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	first, err := svc.CreateReservation(context.Background(), validRequest(), "user-1")
	require.NoError(t, err)
	req := validRequest()
	req.Date = "2024-06-02"
	second, err := svc.CreateReservation(context.Background(), req, "")
	require.NoError(t, err)
	other := validRequest()
	other.CustomerEmail = "bob@example.com"
	_, err = svc.CreateReservation(context.Background(), other, "")
	require.NoError(t, err)

	list, err = svc.GetUserReservations(context.Background(), Requester{UserID: "user-1", Email: "jane@example.com"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest slot first")
	assert.Equal(t, first.ID, list[1].ID)
}

func TestListReservations_Paging(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	for i := 0; i < 5; i++ {
		req := validRequest()
		req.Date = fmt.Sprintf("2024-06-0%d", i+1)
		_, err := svc.CreateReservation(context.Background(), req, "")
		require.NoError(t, err)
	}

	page, err := svc.ListReservations(context.Background(), entities.ReservationFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Reservations, 2)
	assert.Equal(t, "2024-06-04", page.Reservations[0].Date)

	page, err = svc.ListReservations(context.Background(), entities.ReservationFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, page.Limit)

	_, err = svc.ListReservations(context.Background(), entities.ReservationFilter{Status: "finished"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMarkPaymentStatus(t *testing.T) {
	cfg := testConfig()
	cfg.DepositMinPartySize = 6
	cfg.DepositPerGuestCents = 1000
	svc, _ := newTestService(t, cfg)
	svc.WithPayments(NewSimulatedGateway())

	req := validRequest()
	req.PartySize = 6
	booking, err := svc.CreateReservation(context.Background(), req, "")
	require.NoError(t, err)

	paid, err := svc.MarkPaymentStatus(context.Background(), booking.PaymentIntentID, db.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, paid.ID)
	assert.Equal(t, db.PaymentPaid, paid.PaymentStatus)

	_, err = svc.MarkPaymentStatus(context.Background(), "pi_unknown", db.PaymentPaid)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestCancelReservation_RefundsPaidDeposit(t *testing.T) {
	cfg := testConfig()
	cfg.DepositMinPartySize = 6
	cfg.DepositPerGuestCents = 1000
	gateway := NewSimulatedGateway()
	svc, _ := newTestService(t, cfg)
	svc.WithPayments(gateway)

	req := validRequest()
	req.PartySize = 6
	booking, err := svc.CreateReservation(context.Background(), req, "")
	require.NoError(t, err)
	require.NoError(t, gateway.Succeed(booking.PaymentIntentID))
	_, err = svc.MarkPaymentStatus(context.Background(), booking.PaymentIntentID, db.PaymentPaid)
	require.NoError(t, err)

	cancelled, err := svc.AdminCancel(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentRefunded, cancelled.PaymentStatus)
	intent, _ := gateway.Intent(booking.PaymentIntentID)
	assert.Equal(t, "refunded", intent.Status)
}

func TestReservationNotifications(t *testing.T) {
	notifier := &fakeNotifier{err: fmt.Errorf("smtp down")}
	svc, _ := newTestService(t, testConfig())
	svc.WithNotifier(notifier)

	booking, err := svc.CreateReservation(context.Background(), validRequest(), "")
	require.NoError(t, err, "notification failures do not fail the booking")
	_, err = svc.CancelReservation(context.Background(), booking.ID, Requester{Email: "jane@example.com"})
	require.NoError(t, err)
	svc.Wait()

	assert.ElementsMatch(t, []sentMessage{
		{ID: booking.ID, Kind: MessageCreated},
		{ID: booking.ID, Kind: MessageCancelled},
	}, notifier.messages())
}
