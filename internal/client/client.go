// Package client talks to the reservation API the way the booking frontend does:
// cookie session, CSRF double submit and JSON error bodies.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"trattoria/internal/db"
	"trattoria/internal/entities"
)

const (
	csrfHeaderName = "X-CSRF-Token"
	maxErrorBody   = 64 << 10
)

// APIError is a non-2xx response. Message is empty when the body carried none.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

type Client struct {
	baseURL string
	http    *http.Client

	mu   sync.Mutex
	csrf string
}

// New returns a client for baseURL. A nil httpClient gets a default one with
// a cookie jar; a provided client without a jar receives one.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

func (c *Client) Availability(ctx context.Context, date string, partySize int) (*entities.AvailabilityResponse, error) {
	q := url.Values{"date": {date}}
	if partySize > 0 {
		q.Set("partySize", strconv.Itoa(partySize))
	}
	var out entities.AvailabilityResponse
	if err := c.do(ctx, http.MethodGet, "/api/availability?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateReservation(ctx context.Context, req entities.ReservationRequest) (*entities.Booking, error) {
	var out entities.Booking
	if err := c.do(ctx, http.MethodPost, "/api/reservations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetReservation(ctx context.Context, id, email string) (*db.Reservation, error) {
	var out db.Reservation
	if err := c.do(ctx, http.MethodGet, reservationPath(id, email), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelReservation(ctx context.Context, id, email string) (*db.Reservation, error) {
	var out db.Reservation
	if err := c.do(ctx, http.MethodDelete, reservationPath(id, email), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyReservations(ctx context.Context) ([]db.Reservation, error) {
	var out []db.Reservation
	if err := c.do(ctx, http.MethodGet, "/api/reservations/mine", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Session(ctx context.Context) (*entities.SessionResponse, error) {
	var out entities.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req entities.RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", req, nil)
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/login", entities.LoginRequest{Email: email, Password: password}, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func reservationPath(id, email string) string {
	p := "/api/reservations/" + url.PathEscape(id)
	if email != "" {
		p += "?" + url.Values{"email": {email}}.Encode()
	}
	return p
}

func (c *Client) csrfToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.csrf
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/csrf-token", nil, "", &out); err != nil {
		return "", fmt.Errorf("fetching csrf token: %w", err)
	}
	c.mu.Lock()
	c.csrf = out.Token
	c.mu.Unlock()
	return out.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token := ""
	if method != http.MethodGet && method != http.MethodHead {
		var err error
		if token, err = c.csrfToken(ctx); err != nil {
			return err
		}
	}
	return c.send(ctx, method, path, body, token, out)
}

func (c *Client) send(ctx context.Context, method, path string, body any, csrf string, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrf != "" {
		req.Header.Set(csrfHeaderName, csrf)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		apiErr.Fields = payload.Fields
	}
	return apiErr
}
