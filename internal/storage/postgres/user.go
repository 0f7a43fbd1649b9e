package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/booking-platform/auth-core/internal/models"
	"github.com/pribylovaa/booking-platform/auth-core/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserByLogin находит пользователя по нормализованному логину.
func (s *Storage) UserByLogin(ctx context.Context, login string) (*models.User, error) {
	const op = "storage.postgres.UserByLogin"

	query := `
		SELECT id, login, password_hash, active, created_at, updated_at
		FROM users
		WHERE login = $1
	`

	var user models.User
	err := s.db.QueryRow(ctx, query, login).Scan(
		&user.ID,
		&user.Login,
		&user.PasswordHash,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `
		SELECT id, login, password_hash, active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := s.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Login,
		&user.PasswordHash,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}
