// Package booking drives the table booking form: it loads time slots when
// the date changes, submits the reservation and keeps the state a UI renders.
package booking

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"trattoria/internal/client"
	"trattoria/internal/entities"
)

// FallbackMessage is shown when an error carries no message of its own.
const FallbackMessage = "Something went wrong. Please try again."

const defaultPartySize = 2

var (
	// ErrSuperseded means a newer date change replaced this availability request.
	ErrSuperseded = errors.New("availability request superseded by a newer date")
	ErrSubmitting = errors.New("a reservation is already being submitted")
)

// API is the subset of the reservation API the form calls.
type API interface {
	Availability(ctx context.Context, date string, partySize int) (*entities.AvailabilityResponse, error)
	CreateReservation(ctx context.Context, req entities.ReservationRequest) (*entities.Booking, error)
	Session(ctx context.Context) (*entities.SessionResponse, error)
}

type Fields struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Date            string
	Time            string
	PartySize       int
	SpecialRequests string
	Language        string
}

// Confirmation is the summary shown after a successful booking.
type Confirmation struct {
	BookingNumber   string
	Date            string
	Time            string
	PartySize       int
	SpecialRequests string
	Status          string
	Deposit         *entities.PaymentIntent
}

// State is a copy of the form for rendering.
type State struct {
	Fields        Fields
	Slots         []string
	Error         string
	Confirmation  *Confirmation
	Authenticated bool
	Loading       bool
	Submitting    bool
}

type Form struct {
	api API

	mu            sync.Mutex
	fields        Fields
	slots         []string
	errMsg        string
	confirmation  *Confirmation
	authenticated bool
	submitting    bool

	generation  uint64
	cancelFetch context.CancelFunc
}

func NewForm(api API) *Form {
	return &Form{api: api, fields: Fields{PartySize: defaultPartySize}}
}

// LoadSession pre-fills identity fields from the signed-in customer.
func (f *Form) LoadSession(ctx context.Context) error {
	sess, err := f.api.Session(ctx)
	if err != nil {
		f.setError(err)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.authenticated = sess.IsAuthenticated && sess.User != nil
	if f.authenticated {
		u := sess.User
		f.fields.CustomerName = strings.TrimSpace(u.FirstName + " " + u.LastName)
		f.fields.CustomerEmail = u.Email
		f.fields.CustomerPhone = u.Phone
	}
	return nil
}

// Update edits fields in place. Use ChangeDate to change the date.
func (f *Form) Update(edit func(*Fields)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	date := f.fields.Date
	edit(&f.fields)
	f.fields.Date = date
}

// ChangeDate selects date and refreshes the offered times. A request still in
// flight for an earlier date is cancelled and its answer ignored.
func (f *Form) ChangeDate(ctx context.Context, date string) error {
	f.mu.Lock()
	if f.cancelFetch != nil {
		f.cancelFetch()
	}
	f.generation++
	gen := f.generation
	fetchCtx, cancel := context.WithCancel(ctx)
	f.cancelFetch = cancel
	f.fields.Date = date
	f.errMsg = ""
	partySize := f.fields.PartySize
	f.mu.Unlock()

	resp, err := f.api.Availability(fetchCtx, date, partySize)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return ErrSuperseded
	}
	cancel()
	f.cancelFetch = nil

	if err != nil {
		f.slots = nil
		f.errMsg = ErrorMessage(err)
		return err
	}
	f.slots = slices.Clone(resp.Slots)
	if f.fields.Time == "" || !slices.Contains(f.slots, f.fields.Time) {
		f.fields.Time = ""
		if len(f.slots) > 0 {
			f.fields.Time = f.slots[0]
		}
	}
	return nil
}

// Submit sends the reservation. On success the confirmation is kept and the
// transient fields reset; identity fields survive only for signed-in customers.
// On failure the form stays as it was with an error message set.
func (f *Form) Submit(ctx context.Context) (*Confirmation, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.submitting = true
	f.errMsg = ""
	in := f.fields
	f.mu.Unlock()

	booking, err := f.api.CreateReservation(ctx, entities.ReservationRequest{
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		Date:            in.Date,
		Time:            in.Time,
		PartySize:       in.PartySize,
		SpecialRequests: in.SpecialRequests,
		Language:        in.Language,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.errMsg = ErrorMessage(err)
		return nil, err
	}

	conf := &Confirmation{
		BookingNumber:   booking.ID,
		Date:            booking.Date,
		Time:            booking.Time,
		PartySize:       booking.PartySize,
		SpecialRequests: booking.SpecialRequests,
		Status:          booking.Status,
		Deposit:         booking.Deposit,
	}
	f.confirmation = conf
	f.reset()
	return conf, nil
}

func (f *Form) reset() {
	next := Fields{PartySize: defaultPartySize, Language: f.fields.Language}
	if f.authenticated {
		next.CustomerName = f.fields.CustomerName
		next.CustomerEmail = f.fields.CustomerEmail
		next.CustomerPhone = f.fields.CustomerPhone
	}
	f.fields = next
	f.slots = nil
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	var conf *Confirmation
	if f.confirmation != nil {
		c := *f.confirmation
		conf = &c
	}
	return State{
		Fields:        f.fields,
		Slots:         slices.Clone(f.slots),
		Error:         f.errMsg,
		Confirmation:  conf,
		Authenticated: f.authenticated,
		Loading:       f.cancelFetch != nil,
		Submitting:    f.submitting,
	}
}

func (f *Form) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errMsg = ErrorMessage(err)
}

// ErrorMessage extracts the message an API error carries, else FallbackMessage.
func ErrorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return FallbackMessage
}
