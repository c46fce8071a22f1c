package db

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	PaymentNone     = "none"
	PaymentRequired = "requires_payment"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Reservation is a table booking. Date is "YYYY-MM-DD" and Time is "HH:MM",
// both in the restaurant's local time zone.
type Reservation struct {
	ID              string     `db:"id" json:"id"`
	UserID          *string    `db:"user_id" json:"userId,omitempty"`
	CustomerName    string     `db:"customer_name" json:"customerName"`
	CustomerEmail   string     `db:"customer_email" json:"customerEmail"`
	CustomerPhone   string     `db:"customer_phone" json:"customerPhone,omitempty"`
	Date            string     `db:"reservation_date" json:"date"`
	Time            string     `db:"reservation_time" json:"time"`
	PartySize       int        `db:"party_size" json:"partySize"`
	SpecialRequests string     `db:"special_requests" json:"specialRequests,omitempty"`
	Status          string     `db:"status" json:"status"`
	Language        string     `db:"language" json:"language,omitempty"`
	PaymentIntentID string     `db:"payment_intent_id" json:"paymentIntentId,omitempty"`
	PaymentStatus   string     `db:"payment_status" json:"paymentStatus"`
	DepositCents    int64      `db:"deposit_cents" json:"depositCents,omitempty"`
	ReminderSentAt  *time.Time `db:"reminder_sent_at" json:"-"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// StartsAt resolves the reservation date and time in loc.
func (r *Reservation) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.Time, loc)
}

// User is a registered customer.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Admin struct {
	ID           int    `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
}
