package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/models"
	"github.com/pribylovaa/booking-platform/auth-core/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SaveRefreshToken сохраняет новый refresh-токен в БД.
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	query := `
        INSERT INTO refresh_tokens(token_hash, user_id, created_at, expires_at, revoked, revoked_reason, last_used_at, source_addr)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := s.db.Exec(ctx, query,
		token.TokenHash,
		token.UserID,
		token.CreatedAt,
		token.ExpiresAt,
		token.Revoked,
		token.RevokedReason,
		token.LastUsedAt,
		token.SourceAddr,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshTokenByHash находит refresh-токен по его хэшу.
func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByHash"

	query := `
        SELECT token_hash, user_id, created_at, expires_at, revoked, revoked_reason, last_used_at, source_addr
        FROM refresh_tokens
        WHERE token_hash = $1
    `

	var token models.RefreshToken
	err := s.db.QueryRow(ctx, query, hash).Scan(
		&token.TokenHash,
		&token.UserID,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.Revoked,
		&token.RevokedReason,
		&token.LastUsedAt,
		&token.SourceAddr,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &token, nil
}

// RevokeRefreshTokenIfActive пытается отозвать refresh-токен, если он ещё не был отозван.
// Условный UPDATE c WHERE revoked = FALSE — ровно один из конкурентных вызовов
// на одном токене увидит (true, nil); остальные получат (false, nil).
// Возвращает:
//
//	(true, nil)  — токен был активен и успешно отозван сейчас;
//	(false, nil) — токен существует, но уже был отозван;
//	(false, ErrNotFound) — токен не найден.
func (s *Storage) RevokeRefreshTokenIfActive(ctx context.Context, hash, reason string, usedAt time.Time) (bool, error) {
	const op = "storage.postgres.RevokeRefreshTokenIfActive"

	const upd = `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_reason = $2, last_used_at = $3
		WHERE token_hash = $1 AND revoked = FALSE
		RETURNING user_id
	`

	var userID string
	err := s.db.QueryRow(ctx, upd, hash, reason, usedAt).Scan(&userID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	const sel = `
		SELECT revoked
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var revoked bool
	err = s.db.QueryRow(ctx, sel, hash).Scan(&revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return false, nil
}

// RotateRefreshToken атомарно отзывает токен oldHash и сохраняет преемника
// в одной транзакции. Условный UPDATE гарантирует, что из конкурентных
// ротаций одного токена ровно одна создаст преемника; проигравшая увидит
// (false, nil) — сигнал повторного предъявления.
func (s *Storage) RotateRefreshToken(ctx context.Context, oldHash, reason string, usedAt time.Time, successor *models.RefreshToken) (bool, error) {
	const op = "storage.postgres.RotateRefreshToken"

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upd = `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_reason = $2, last_used_at = $3
		WHERE token_hash = $1 AND revoked = FALSE
		RETURNING user_id
	`

	var userID string
	err = tx.QueryRow(ctx, upd, oldHash, reason, usedAt).Scan(&userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		const sel = `
			SELECT revoked
			FROM refresh_tokens
			WHERE token_hash = $1
		`

		var revoked bool
		selErr := tx.QueryRow(ctx, sel, oldHash).Scan(&revoked)
		if selErr != nil {
			if errors.Is(selErr, pgx.ErrNoRows) {
				return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
			}

			return false, fmt.Errorf("%s: %w", op, selErr)
		}

		return false, nil
	}

	const ins = `
        INSERT INTO refresh_tokens(token_hash, user_id, created_at, expires_at, revoked, revoked_reason, last_used_at, source_addr)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err = tx.Exec(ctx, ins,
		successor.TokenHash,
		successor.UserID,
		successor.CreatedAt,
		successor.ExpiresAt,
		successor.Revoked,
		successor.RevokedReason,
		successor.LastUsedAt,
		successor.SourceAddr,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return false, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// RevokeAllForUser отзывает все ещё активные токены пользователя
// («выйти везде», каскад при компрометации).
func (s *Storage) RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) (int64, error) {
	const op = "storage.postgres.RevokeAllForUser"

	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_reason = $2
		WHERE user_id = $1 AND revoked = FALSE
	`

	cmdTag, err := s.db.Exec(ctx, query, userID, reason)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}

// DeleteStaleTokens удаляет отозванные или просроченные токены,
// созданные не позднее cutoff. Активные записи условие не задевает.
func (s *Storage) DeleteStaleTokens(ctx context.Context, now, cutoff time.Time) (int64, error) {
	const op = "storage.postgres.DeleteStaleTokens"

	query := `
        DELETE FROM refresh_tokens
        WHERE (revoked = TRUE OR expires_at <= $1) AND created_at <= $2
    `

	cmdTag, err := s.db.Exec(ctx, query, now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}
