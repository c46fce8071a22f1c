package api

import (
	"net/http"
	"time"

	"trattoria/internal/auth"
	"trattoria/internal/entities"
	"trattoria/internal/service"
)

type SessionHandler struct {
	users        *service.UserAuthService
	tokenTTL     time.Duration
	cookieSecure bool
}

func NewSessionHandler(users *service.UserAuthService, tokenTTL time.Duration, cookieSecure bool) *SessionHandler {
	return &SessionHandler{users: users, tokenTTL: tokenTTL, cookieSecure: cookieSecure}
}

func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entities.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	_, token, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setSessionCookie(w, token, int(h.tokenTTL.Seconds()))
	writeJSON(w, http.StatusCreated, entities.LoginResponse{Token: token})
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	_, token, err := h.users.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setSessionCookie(w, token, int(h.tokenTTL.Seconds()))
	writeJSON(w, http.StatusOK, entities.LoginResponse{Token: token})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// Session answers GET /api/session with {isAuthenticated, user}.
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	resp, err := h.users.Session(r.Context(), customerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
