package api

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type AdminCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
