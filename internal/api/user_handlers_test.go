package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trattoria/internal/auth"
	"trattoria/internal/db"
	"trattoria/internal/entities"
)

func TestCheckAvailability(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/availability?date=2024-06-01&partySize=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[entities.AvailabilityResponse](t, rec)
	assert.Equal(t, "2024-06-01", resp.Date)
	assert.Equal(t, 2, resp.PartySize)
	assert.Len(t, resp.Slots, 10)
	assert.Equal(t, "17:00", resp.Slots[0])

	rec = env.do(t, http.MethodGet, "/api/availability", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decode[errorBody](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/availability?date=2024-06-01&partySize=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReservation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/reservations", reservationBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode[entities.Booking](t, rec)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, db.StatusConfirmed, booking.Status)
	assert.Equal(t, "Jane Doe", booking.CustomerName)
	assert.Equal(t, "2024-06-01", booking.Date)
	assert.Equal(t, "19:00", booking.Time)
	assert.Equal(t, 4, booking.PartySize)
	assert.Nil(t, booking.Deposit)
}

func TestCreateReservation_WithDeposit(t *testing.T) {
	env := newTestEnv(t)
	body := reservationBody()
	body["partySize"] = 10

	rec := env.do(t, http.MethodPost, "/api/reservations", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode[entities.Booking](t, rec)
	require.NotNil(t, booking.Deposit)
	assert.Equal(t, int64(10000), booking.Deposit.Amount)
	assert.NotEmpty(t, booking.Deposit.ClientSecret)
	assert.Equal(t, db.PaymentRequired, booking.PaymentStatus)
}

func TestCreateReservation_Errors(t *testing.T) {
	env := newTestEnv(t)

	body := reservationBody()
	body["customerEmail"] = "nope"
	body["partySize"] = 0
	rec := env.do(t, http.MethodPost, "/api/reservations", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode[errorBody](t, rec)
	assert.Equal(t, "validation_failed", errBody.Code)
	assert.Contains(t, errBody.Fields, "customerEmail")
	assert.Contains(t, errBody.Fields, "partySize")

	rec = env.do(t, http.MethodPost, "/api/reservations", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/reservations", reservationBody(), withoutCSRF())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for i := 0; i < 10; i++ {
		body := reservationBody()
		body["partySize"] = 4
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/reservations", body).Code)
	}
	rec = env.do(t, http.MethodPost, "/api/reservations", reservationBody())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_unavailable", decode[errorBody](t, rec).Code)
}

func TestGetAndCancelReservation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/reservations", reservationBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	booking := decode[entities.Booking](t, rec)
	path := "/api/reservations/" + booking.ID

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path+"?email=bob@example.com", nil).Code)

	rec = env.do(t, http.MethodGet, path+"?email=jane@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.ID, decode[db.Reservation](t, rec).ID)

	rec = env.do(t, http.MethodDelete, path+"?email=jane@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decode[db.Reservation](t, rec)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)
	assert.Equal(t, booking.ID, cancelled.ID)

	rec = env.do(t, http.MethodDelete, path+"?email=jane@example.com", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_cancelled", decode[errorBody](t, rec).Code)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/reservations/not-a-uuid?email=jane@example.com", nil).Code)
}

func TestMyReservations(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.tokens.Issue("user-1", "jane@example.com", auth.RoleCustomer)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/reservations/mine", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]db.Reservation](t, rec))

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/reservations", reservationBody(), withBearer(token)).Code)

	rec = env.do(t, http.MethodGet, "/api/reservations/mine", nil, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]db.Reservation](t, rec)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].UserID)
	assert.Equal(t, "user-1", *list[0].UserID)
}
