package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (хэш refresh-токена).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage читает учётные записи. auth-core не создаёт и не изменяет
// пользователей — это делает владеющий CRUD-бэкенд.
type UserStorage interface {
	// UserByLogin находит пользователя по нормализованному логину.
	// Возвращает запись независимо от флага Active: решение о запрете
	// входа для отключённой учётки принимает сервисный слой.
	UserByLogin(ctx context.Context, login string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenStorage выполняет операции над refresh-токенами.
type TokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshTokenIfActive атомарно отзывает токен, если он ещё
	// не был отозван (условный UPDATE, а не read-then-write).
	// Возвращает:
	//
	//	(true, nil)  — токен был активен и отозван сейчас;
	//	(false, nil) — токен существует, но уже был отозван;
	//	(false, ErrNotFound) — токен не найден.
	RevokeRefreshTokenIfActive(ctx context.Context, hash, reason string, usedAt time.Time) (bool, error)
	// RotateRefreshToken в одной транзакции отзывает токен oldHash
	// (если он ещё активен) и сохраняет преемника. Не существует окна,
	// в котором активны оба токена или ни один из них.
	// Семантика результата совпадает с RevokeRefreshTokenIfActive;
	// преемник создаётся только при (true, nil).
	RotateRefreshToken(ctx context.Context, oldHash, reason string, usedAt time.Time, successor *models.RefreshToken) (bool, error)
	// RevokeAllForUser отзывает все активные токены пользователя и
	// возвращает число отозванных записей.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) (int64, error)
	// DeleteStaleTokens удаляет отозванные или просроченные (на момент now)
	// токены, созданные не позднее cutoff. Активные записи не трогает.
	DeleteStaleTokens(ctx context.Context, now, cutoff time.Time) (int64, error)
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	TokenStorage
	Close()
}
