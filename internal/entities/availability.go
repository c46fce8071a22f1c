package entities

// AvailabilityResponse lists the bookable start times for a date.
type AvailabilityResponse struct {
	Date      string   `json:"date"`
	PartySize int      `json:"partySize,omitempty"`
	Slots     []string `json:"slots"`
}
