package entities

// PaymentIntent mirrors the subset of a gateway payment intent the frontend needs.
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"clientSecret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type PaymentIntentRequest struct {
	Amount   int64             `json:"amount" validate:"required,gt=0"`
	Currency string            `json:"currency" validate:"omitempty,len=3"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
