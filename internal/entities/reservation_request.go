package entities

// ReservationRequest is the payload a guest submits to book a table.
type ReservationRequest struct {
	CustomerName    string `json:"customerName" validate:"required,max=120"`
	CustomerEmail   string `json:"customerEmail" validate:"required,email,max=254"`
	CustomerPhone   string `json:"customerPhone,omitempty" validate:"omitempty,max=32"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	PartySize       int    `json:"partySize" validate:"required,min=1"`
	SpecialRequests string `json:"specialRequests,omitempty"`
	Language        string `json:"language,omitempty" validate:"omitempty,oneof=en es it"`
}
