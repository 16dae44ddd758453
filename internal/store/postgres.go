package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/research-dashboard/internal/models"
)

// UserStore handles accounts and per-user search counters in PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Migrate creates the users table and adds columns introduced later.
func (s *UserStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username     VARCHAR(50)  UNIQUE NOT NULL,
			email        VARCHAR(255) UNIQUE NOT NULL,
			password     VARCHAR(255) NOT NULL,
			created_at   TIMESTAMPTZ  DEFAULT NOW()
		);
		ALTER TABLE users ADD COLUMN IF NOT EXISTS search_count BIGINT NOT NULL DEFAULT 0;
	`)
	if err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

func (s *UserStore) CreateUser(ctx context.Context, username, email, hashedPassword string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, email, search_count, created_at`,
		username, email, hashedPassword,
	).Scan(&u.ID, &u.Username, &u.Email, &u.SearchCount, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx,
		`SELECT id, username, email, password, search_count, created_at FROM users WHERE email = $1`, email)
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx,
		`SELECT id, username, email, password, search_count, created_at FROM users WHERE id = $1`, id)
}

// RecordSearch increments the user's completed-search counter.
func (s *UserStore) RecordSearch(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET search_count = search_count + 1 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.SearchCount, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
