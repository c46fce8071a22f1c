package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"trattoria/internal/db"
)

type AdminAuthRepository interface {
	GetByEmail(ctx context.Context, email string) (*db.Admin, error)
	CreateNewUser(ctx context.Context, email, password string) error
}

type adminAuthRepository struct {
	db *sqlx.DB
}

func NewAdminAuthRepository(db *sqlx.DB) AdminAuthRepository {
	return &adminAuthRepository{db: db}
}

// GetByEmail returns nil, nil when no admin has that email.
func (r *adminAuthRepository) GetByEmail(ctx context.Context, email string) (*db.Admin, error) {
	var admin db.Admin
	err := r.db.GetContext(ctx, &admin,
		"SELECT id, email, password_hash FROM admins WHERE email = $1", strings.ToLower(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying admin: %w", err)
	}
	return &admin, nil
}

func (r *adminAuthRepository) CreateNewUser(ctx context.Context, email, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO admins (email, password_hash) VALUES ($1, $2)", strings.ToLower(email), string(hashedPassword))
	if err != nil {
		return fmt.Errorf("error inserting admin: %w", err)
	}
	return nil
}

// MemoryAdminAuthRepository stores admins in memory.
type MemoryAdminAuthRepository struct {
	mu     sync.RWMutex
	admins map[string]db.Admin
	nextID int
}

func NewMemoryAdminAuthRepository() *MemoryAdminAuthRepository {
	return &MemoryAdminAuthRepository{admins: make(map[string]db.Admin), nextID: 1}
}

func (m *MemoryAdminAuthRepository) GetByEmail(_ context.Context, email string) (*db.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryAdminAuthRepository) CreateNewUser(_ context.Context, email, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(email)
	m.admins[key] = db.Admin{ID: m.nextID, Email: key, PasswordHash: string(hashed)}
	m.nextID++
	return nil
}
