// service содержит бизнес-логику ядра аутентификации: вход по паролю,
// ротацию refresh-токенов, отзыв сессий и реакцию на replay.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при
//     условии, что переданные хранилища потокобезопасны.
//   - Все ожидаемые security-отказы — перечисленные ниже sentinel-ошибки,
//     а не паники; транспорт маппит их в HTTP-статусы, не раскрывая
//     внутренних деталей (в частности, «нет такой учётки» и «неверный
//     пароль» снаружи неразличимы).
package service

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/lockout"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь
	// не найден. Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled — учётка отключена владеющим бэкендом.
	// Транспорт: HTTP 401 (без уточнения причины).
	ErrAccountDisabled = errors.New("account disabled")

	// ErrAccountLocked — учётка временно заблокирована после серии
	// неудачных попыток. Транспорт: HTTP 429.
	ErrAccountLocked = errors.New("account locked")

	// ErrTooManyAttempts — адрес источника временно заблокирован.
	// Транспорт: HTTP 429.
	ErrTooManyAttempts = errors.New("too many attempts")

	// ErrInvalidToken — токен (access/refresh) некорректен по
	// формату/подписи или отсутствует в хранилище. Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/rotation/compromise) и
	// недействителен независимо от срока. Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrReplayDetected — предъявлен уже ротированный/отозванный
	// refresh-токен; все токены владельца каскадно отозваны.
	// Транспорт: HTTP 401 (наружу неотличим от ErrInvalidToken).
	ErrReplayDetected = errors.New("replay detected")
)

// RefreshLedger — операции над refresh-токенами, нужные оркестратору.
// Продакшен-реализация — *ledger.Ledger.
type RefreshLedger interface {
	Issue(ctx context.Context, userID uuid.UUID, sourceAddr string) (string, error)
	Rotate(ctx context.Context, raw, sourceAddr string) (string, uuid.UUID, error)
	Revoke(ctx context.Context, raw, reason string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) (int64, error)
}

// Guard — контракт блокировок по учётке/адресу. Продакшен-реализация —
// *lockout.Guard.
type Guard interface {
	CheckLocked(ctx context.Context, kind lockout.Kind, key string) (bool, time.Duration, error)
	RegisterFailure(ctx context.Context, kind lockout.Kind, key string) (bool, error)
	RegisterSuccess(ctx context.Context, key string) error
}

