// lockout отслеживает неудачные попытки аутентификации и временно
// блокирует ключи (учётку или адрес источника) после превышения порога.
//
// Машина состояний ключа: Clear → Accumulating (n < threshold) →
// Locked (until T) → Clear (лениво, когда now > T). Истечение блокировки
// определяется сравнением сохранённого момента с инжектированными часами;
// TTL ключей в хранилище — только уборка мусора, не источник истины.
package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/clock"
	"github.com/pribylovaa/booking-platform/auth-core/internal/config"
	"github.com/pribylovaa/booking-platform/auth-core/internal/counters"
	"github.com/pribylovaa/booking-platform/auth-core/internal/pkg/log"

	"log/slog"
)

// Kind различает счётчики по учётке и по адресу источника.
// Два независимых счётчика на попытку входа ловят и перебор многих
// учёток с одного адреса, и credential stuffing по одной учётке
// с многих адресов.
type Kind string

const (
	KindAccount Kind = "acct"
	KindAddress Kind = "addr"
)

// Guard применяет политики блокировки поверх общего хранилища счётчиков.
// Экземпляр не хранит состояние между вызовами.
type Guard struct {
	store counters.Store
	cfg   config.LockoutConfig
	clk   clock.Clock
}

// New создаёт Guard. Если clk == nil, используются системные часы.
func New(store counters.Store, cfg config.LockoutConfig, clk clock.Clock) *Guard {
	if clk == nil {
		clk = clock.System{}
	}

	return &Guard{store: store, cfg: cfg, clk: clk}
}

func (g *Guard) policy(kind Kind) config.LockoutPolicy {
	if kind == KindAddress {
		return g.cfg.Address
	}

	return g.cfg.Account
}

func counterKey(kind Kind, key string) string { return "cnt:" + string(kind) + ":" + key }
func lockKey(kind Kind, key string) string    { return "lock:" + string(kind) + ":" + key }

// CheckLocked сообщает, заблокирован ли ключ, и сколько осталось до
// снятия блокировки. Чистое чтение: истёкшая блокировка отражается как
// отсутствие без мутации состояния.
func (g *Guard) CheckLocked(ctx context.Context, kind Kind, key string) (bool, time.Duration, error) {
	const op = "lockout.CheckLocked"

	if key == "" {
		return false, 0, nil
	}

	until, ok, err := g.store.Lock(ctx, lockKey(kind, key))
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		return false, 0, nil
	}

	now := g.clk.Now()
	if !now.Before(until) {
		return false, 0, nil
	}

	return true, until.Sub(now), nil
}

// RegisterFailure фиксирует неудачную попытку. Если счётчик в пределах
// окна достиг порога, выставляет блокировку до now+LockDuration и
// возвращает true. Пустой ключ (нет адреса источника) — no-op.
func (g *Guard) RegisterFailure(ctx context.Context, kind Kind, key string) (bool, error) {
	const op = "lockout.RegisterFailure"

	if key == "" {
		return false, nil
	}

	pol := g.policy(kind)

	count, err := g.store.Incr(ctx, counterKey(kind, key), pol.Window)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if count < int64(pol.Threshold) {
		return false, nil
	}

	until := g.clk.Now().Add(pol.LockDuration)
	if err := g.store.SetLock(ctx, lockKey(kind, key), until, g.cfg.CounterTTL); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	// Счётчик обнуляется: после снятия блокировки ключ начинает с Clear.
	if err := g.store.Del(ctx, counterKey(kind, key)); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Warn("lockout_engaged",
		slog.String("op", op),
		slog.String("kind", string(kind)),
		slog.Duration("lock_duration", pol.LockDuration),
	)

	return true, nil
}

// RegisterSuccess очищает счётчик учётки после успешного входа.
// Адресный счётчик намеренно не очищается: успех одной учётки за общим
// NAT/прокси не должен разблокировать перебор других учёток с того же
// адреса (адресные счётчики затухают только по TTL).
func (g *Guard) RegisterSuccess(ctx context.Context, key string) error {
	const op = "lockout.RegisterSuccess"

	if key == "" {
		return nil
	}

	if err := g.store.Del(ctx, counterKey(KindAccount, key), lockKey(KindAccount, key)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
