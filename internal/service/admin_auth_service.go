package service

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"trattoria/internal/auth"
	"trattoria/internal/repository"
)

type AdminAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	CreateAdmin(ctx context.Context, email, password string) error
}

type adminAuthService struct {
	repo   repository.AdminAuthRepository
	tokens *auth.TokenIssuer
}

func NewAdminAuthService(repo repository.AdminAuthRepository, tokens *auth.TokenIssuer) AdminAuthService {
	return &adminAuthService{repo: repo, tokens: tokens}
}

func (s *adminAuthService) Login(ctx context.Context, email, password string) (string, error) {
	admin, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	if admin == nil {
		return "", ErrInvalidCredentials
	}
	if !checkPasswordHash(password, admin.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(strconv.Itoa(admin.ID), admin.Email, auth.RoleAdmin)
}

func (s *adminAuthService) CreateAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	verr := &ValidationError{}
	if email == "" {
		verr.add("email", "is required")
	}
	if len(password) < 8 {
		verr.add("password", "must be at least 8 characters")
	}
	if err := verr.orNil(); err != nil {
		return err
	}
	return s.repo.CreateNewUser(ctx, email, password)
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
