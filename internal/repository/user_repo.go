package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"trattoria/internal/db"
)

type UserRepository struct {
	DB *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, u *db.User) error {
	query := `
		INSERT INTO users (id, first_name, last_name, email, phone, password_hash, created_at)
		VALUES (:id, :first_name, :last_name, :email, :phone, :password_hash, :created_at)`
	if _, err := r.DB.NamedExecContext(ctx, query, u); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	return r.getOne(ctx, `SELECT * FROM users WHERE email = $1`, strings.ToLower(email))
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	return r.getOne(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*db.User, error) {
	var u db.User
	if err := r.DB.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return &u, nil
}

// MemoryUserRepository is the in-process counterpart of UserRepository.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]db.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]db.User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryUserRepository) CreateUser(_ context.Context, u *db.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := m.byEmail[email]; ok {
		return ErrEmailTaken
	}
	m.byID[u.ID] = *u
	m.byEmail[email] = u.ID
	return nil
}

func (m *MemoryUserRepository) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.byID[id]
	return &u, nil
}

func (m *MemoryUserRepository) GetUserByID(_ context.Context, id string) (*db.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
