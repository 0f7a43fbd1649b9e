// ledger владеет жизненным циклом refresh-токенов: выпуск, ротация,
// отзыв и обнаружение повторного предъявления.
//
// Сырое значение токена — 32 байта из криптографического источника
// случайности — существует вне клиента единственный раз, в ответе на
// выпуск. В БД хранится только SHA-256-хэш: токены и так высокоэнтропийны,
// медленный адаптивный хэш здесь не нужен и лишь добавил бы задержку
// каждому refresh-запросу.
package ledger

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pribylovaa/booking-platform/auth-core/internal/clock"
	"github.com/pribylovaa/booking-platform/auth-core/internal/config"
	"github.com/pribylovaa/booking-platform/auth-core/internal/models"
	"github.com/pribylovaa/booking-platform/auth-core/internal/pkg/log"
	"github.com/pribylovaa/booking-platform/auth-core/internal/storage"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — предъявленный токен неизвестен хранилищу.
	ErrNotFound = errors.New("refresh token not found")
	// ErrRevoked — токен уже отозван. Для известного токена это сигнал
	// повторного предъявления; решение о каскадном отзыве принимает
	// вызывающая сторона, ledger каскад не выполняет.
	ErrRevoked = errors.New("refresh token revoked")
	// ErrExpired — срок действия токена истёк.
	ErrExpired = errors.New("refresh token expired")
	// ErrCollision — исчерпаны попытки сгенерировать уникальный токен.
	ErrCollision = errors.New("refresh token collision")
)

// rawTokenLen — длина сырого значения в байтах (256 бит энтропии).
const rawTokenLen = 32

// maxIssueAttempts ограничивает ретраи при коллизии хэша в БД.
const maxIssueAttempts = 5

// Ledger выполняет операции над refresh-токенами поверх storage.TokenStorage.
// Экземпляр не хранит состояние между вызовами.
type Ledger struct {
	store storage.TokenStorage
	cfg   config.AuthConfig
	clk   clock.Clock
	randr io.Reader
}

// New создаёт Ledger. Нулевые clk/randr заменяются системными часами
// и crypto/rand.
func New(store storage.TokenStorage, cfg config.AuthConfig, clk clock.Clock, randr io.Reader) *Ledger {
	if clk == nil {
		clk = clock.System{}
	}
	if randr == nil {
		randr = rand.Reader
	}

	return &Ledger{store: store, cfg: cfg, clk: clk, randr: randr}
}

// HashToken возвращает хэш сырого токена в том виде, в котором он
// хранится в БД (SHA-256, base64url без паддинга).
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// newRaw генерирует сырое значение токена.
func (l *Ledger) newRaw() (string, error) {
	b := make([]byte, rawTokenLen)
	if _, err := io.ReadFull(l.randr, b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// row собирает запись токена для userID с новым сроком действия.
func (l *Ledger) row(hash string, userID uuid.UUID, sourceAddr string) *models.RefreshToken {
	now := l.clk.Now()
	t := &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(l.cfg.RefreshTokenTTL),
		Revoked:   false,
	}
	if sourceAddr != "" {
		t.SourceAddr = &sourceAddr
	}

	return t
}

// Issue выпускает новый refresh-токен для пользователя и возвращает
// сырое значение. При коллизии хэша в БД генерация повторяется.
func (l *Ledger) Issue(ctx context.Context, userID uuid.UUID, sourceAddr string) (string, error) {
	const op = "ledger.Issue"

	lg := log.From(ctx)

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		raw, err := l.newRaw()
		if err != nil {
			lg.Error("refresh_rand_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", fmt.Errorf("%s: %w", op, err)
		}

		if err := l.store.SaveRefreshToken(ctx, l.row(HashToken(raw), userID, sourceAddr)); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия — пробуем сгенерировать заново.
				continue
			}

			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", fmt.Errorf("%s: %w", op, err)
		}

		return raw, nil
	}

	lg.Error("refresh_collision_exceeded", slog.String("op", op))

	return "", fmt.Errorf("%s: %w", op, ErrCollision)
}

// Rotate атомарно отзывает предъявленный токен и выпускает преемника.
// Возвращает сырое значение преемника и ID владельца.
//
// Ошибочные исходы:
//   - ErrNotFound — хэш неизвестен (userID в ответе нулевой);
//   - ErrRevoked/ErrExpired — предъявлен мёртвый токен; владелец
//     возвращается вместе с ошибкой, чтобы вызывающая сторона могла
//     каскадно отозвать все его токены.
//
// Из двух конкурентных ротаций одного токена ровно одна получает
// преемника; вторая наблюдает ErrRevoked.
func (l *Ledger) Rotate(ctx context.Context, raw, sourceAddr string) (string, uuid.UUID, error) {
	const op = "ledger.Rotate"

	lg := log.From(ctx)
	hash := HashToken(raw)

	current, err := l.store.RefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_lookup_not_found", slog.String("op", op))
			return "", uuid.Nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("refresh_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if current.Revoked {
		return "", current.UserID, fmt.Errorf("%s: %w", op, ErrRevoked)
	}

	now := l.clk.Now()
	if !now.Before(current.ExpiresAt) {
		return "", current.UserID, fmt.Errorf("%s: %w", op, ErrExpired)
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		newRaw, err := l.newRaw()
		if err != nil {
			return "", uuid.Nil, fmt.Errorf("%s: %w", op, err)
		}

		rotated, err := l.store.RotateRefreshToken(ctx, hash, models.RevokeReasonRotated, now,
			l.row(HashToken(newRaw), current.UserID, sourceAddr))
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				continue
			}
			if errors.Is(err, storage.ErrNotFound) {
				return "", uuid.Nil, fmt.Errorf("%s: %w", op, ErrNotFound)
			}

			lg.Error("refresh_rotate_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", uuid.Nil, fmt.Errorf("%s: %w", op, err)
		}

		if !rotated {
			// Проигранная гонка: токен отозван между чтением и CAS.
			return "", current.UserID, fmt.Errorf("%s: %w", op, ErrRevoked)
		}

		return newRaw, current.UserID, nil
	}

	return "", uuid.Nil, fmt.Errorf("%s: %w", op, ErrCollision)
}

// Revoke отзывает токен по сырому значению. Повторный отзыв не считается
// ошибкой хранения, но возвращает ErrRevoked, чтобы вызывающая сторона
// могла залогировать подозрительное (хотя и безвредное) предъявление.
func (l *Ledger) Revoke(ctx context.Context, raw, reason string) error {
	const op = "ledger.Revoke"

	revoked, err := l.store.RevokeRefreshTokenIfActive(ctx, HashToken(raw), reason, l.clk.Now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !revoked {
		return fmt.Errorf("%s: %w", op, ErrRevoked)
	}

	return nil
}

// RevokeAllForUser отзывает все активные токены пользователя
// («выйти везде», реакция на компрометацию).
func (l *Ledger) RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) (int64, error) {
	const op = "ledger.RevokeAllForUser"

	n, err := l.store.RevokeAllForUser(ctx, userID, reason)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("refresh_revoke_all",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.String("reason", reason),
		slog.Int64("count", n),
	)

	return n, nil
}

// Sweep удаляет отозванные и просроченные токены старше горизонта
// хранения. Чистая уборка мусора: активные записи не затрагиваются,
// корректность ротации от Sweep не зависит.
func (l *Ledger) Sweep(ctx context.Context) (int64, error) {
	const op = "ledger.Sweep"

	now := l.clk.Now()
	n, err := l.store.DeleteStaleTokens(ctx, now, now.Add(-l.cfg.SweepRetention))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
