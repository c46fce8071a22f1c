package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"trattoria/internal/auth"
	"trattoria/internal/db"
	"trattoria/internal/entities"
	"trattoria/internal/repository"
	"trattoria/internal/utils"
)

// UserAuthService registers customers and signs them in.
type UserAuthService struct {
	users              repository.UserStore
	tokens             *auth.TokenIssuer
	defaultCountryCode string
}

func NewUserAuthService(users repository.UserStore, tokens *auth.TokenIssuer, defaultCountryCode string) *UserAuthService {
	return &UserAuthService{users: users, tokens: tokens, defaultCountryCode: defaultCountryCode}
}

func (s *UserAuthService) Register(ctx context.Context, req entities.RegisterRequest) (*db.User, string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := validate.Struct(req); err != nil {
		return nil, "", toValidationError(err)
	}
	phone, err := utils.NormalizePhone(req.Phone, s.defaultCountryCode)
	if err != nil {
		return nil, "", &ValidationError{Fields: map[string]string{"phone": "must be a valid phone number"}}
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("error hashing password: %w", err)
	}
	user := &db.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        phone,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email, auth.RoleCustomer)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserAuthService) Login(ctx context.Context, req entities.LoginRequest) (*db.User, string, error) {
	if err := validate.Struct(req); err != nil {
		return nil, "", toValidationError(err)
	}
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("error loading user: %w", err)
	}
	if !checkPasswordHash(req.Password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user.ID, user.Email, auth.RoleCustomer)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Session describes the caller for form pre-fill. Unknown or missing users
// yield an unauthenticated session.
func (s *UserAuthService) Session(ctx context.Context, userID string) (entities.SessionResponse, error) {
	if userID == "" {
		return entities.SessionResponse{IsAuthenticated: false}, nil
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return entities.SessionResponse{IsAuthenticated: false}, nil
		}
		return entities.SessionResponse{}, fmt.Errorf("error loading session user: %w", err)
	}
	return entities.SessionResponse{
		IsAuthenticated: true,
		User: &entities.SessionUser{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
			Phone:     user.Phone,
		},
	}, nil
}
