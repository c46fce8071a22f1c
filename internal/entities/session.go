package entities

// SessionUser is the identity a booking form pre-fills from.
type SessionUser struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type SessionResponse struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *SessionUser `json:"user,omitempty"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=60"`
	LastName  string `json:"lastName" validate:"max=60"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}
