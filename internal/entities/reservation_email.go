package entities

// ReservationEmailData feeds the reservation email template.
type ReservationEmailData struct {
	Restaurant      string
	CustomerName    string
	ReservationID   string
	DateFormatted   string
	Time            string
	PartySize       int
	SpecialRequests string
	Status          string
	Headline        string
	Greeting        string
	Labels          EmailLabels
	CurrentYear     int
	Language        string
}

type EmailLabels struct {
	Code     string
	Date     string
	Time     string
	Guests   string
	Status   string
	Requests string
}
