package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"trattoria/internal/entities"
)

var ErrPaymentIntentNotFound = errors.New("payment intent not found")

// PaymentGateway creates and unwinds deposit payments.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*entities.PaymentIntent, error)
	CancelIntent(ctx context.Context, intentID string) error
	Refund(ctx context.Context, intentID string) error
}

// SimulatedGateway fabricates gateway-shaped payment intents locally. No money moves.
type SimulatedGateway struct {
	mu      sync.Mutex
	intents map[string]*entities.PaymentIntent
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{intents: make(map[string]*entities.PaymentIntent)}
}

func (g *SimulatedGateway) CreateIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*entities.PaymentIntent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}
	id := "pi_sim_" + randomHex(12)
	intent := &entities.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret_" + randomHex(12),
		Amount:       amount,
		Currency:     strings.ToLower(currency),
		Status:       "requires_payment_method",
		Metadata:     maps.Clone(metadata),
	}

	g.mu.Lock()
	g.intents[id] = intent
	g.mu.Unlock()

	cp := *intent
	return &cp, nil
}

func (g *SimulatedGateway) CancelIntent(_ context.Context, intentID string) error {
	return g.transition(intentID, "canceled")
}

func (g *SimulatedGateway) Refund(_ context.Context, intentID string) error {
	return g.transition(intentID, "refunded")
}

// Succeed marks an intent as paid, standing in for the customer completing checkout.
func (g *SimulatedGateway) Succeed(intentID string) error {
	return g.transition(intentID, "succeeded")
}

// Intent returns a copy of a fabricated intent.
func (g *SimulatedGateway) Intent(intentID string) (*entities.PaymentIntent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, false
	}
	cp := *intent
	return &cp, true
}

func (g *SimulatedGateway) transition(intentID, status string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[intentID]
	if !ok {
		return ErrPaymentIntentNotFound
	}
	intent.Status = status
	return nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// PaymentService creates standalone payment intents for checkout flows.
type PaymentService struct {
	gateway         PaymentGateway
	defaultCurrency string
}

func NewPaymentService(gateway PaymentGateway, defaultCurrency string) *PaymentService {
	return &PaymentService{gateway: gateway, defaultCurrency: defaultCurrency}
}

func (s *PaymentService) CreateIntent(ctx context.Context, req entities.PaymentIntentRequest) (*entities.PaymentIntent, error) {
	if err := validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}
	return s.gateway.CreateIntent(ctx, req.Amount, currency, req.Metadata)
}
