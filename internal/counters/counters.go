// counters — персистентное хранилище счётчиков неудачных попыток входа
// и меток блокировки. Ядро сервиса не кэширует счётчики в процессе:
// несколько инстансов за балансировщиком видят единое состояние через
// общий Redis.
package counters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable — бэкенд счётчиков недоступен.
var ErrUnavailable = errors.New("counter backend unavailable")

// Store — контракт хранилища счётчиков. Все операции над одним ключом
// атомарны на стороне бэкенда (INCR/SET), сериализация по ключу не
// требует блокировок в приложении.
type Store interface {
	// Incr увеличивает счётчик ключа на 1. На первом инкременте ключу
	// выставляется TTL window(скользящее окно подсчёта отказов).
	// Возвращает значение после инкремента.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// Count возвращает текущее значение счётчика (0, если ключа нет).
	Count(ctx context.Context, key string) (int64, error)
	// SetLock запоминает момент окончания блокировки ключа с TTL ttl.
	SetLock(ctx context.Context, key string, until time.Time, ttl time.Duration) error
	// Lock возвращает момент окончания блокировки и признак её наличия.
	Lock(ctx context.Context, key string) (time.Time, bool, error)
	// Del удаляет ключи (счётчик и/или блокировку).
	Del(ctx context.Context, keys ...string) error
	// Close закрывает соединение с бэкендом.
	Close() error
}

type redisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:lk:".
func NewRedisStore(redisURL, prefix string) (Store, error) {
	if prefix == "" {
		prefix = "auth:lk:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisStore{rdb: rdb, prefix: prefix}, nil
}

// NewRedisStoreFromClient оборачивает готовый клиент (для тестов с miniredis).
func NewRedisStoreFromClient(rdb *redis.Client, prefix string) Store {
	if prefix == "" {
		prefix = "auth:lk:"
	}

	return &redisStore{rdb: rdb, prefix: prefix}
}

func (s *redisStore) key(k string) string { return s.prefix + k }

func (s *redisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.rdb.Incr(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 && window > 0 {
		if err := s.rdb.Expire(ctx, s.key(key), window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return count, nil
}

func (s *redisStore) Count(ctx context.Context, key string) (int64, error) {
	count, err := s.rdb.Get(ctx, s.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return count, nil
}

func (s *redisStore) SetLock(ctx context.Context, key string, until time.Time, ttl time.Duration) error {
	val := strconv.FormatInt(until.Unix(), 10)
	if err := s.rdb.Set(ctx, s.key(key), val, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

func (s *redisStore) Lock(ctx context.Context, key string) (time.Time, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: malformed lock value", ErrUnavailable)
	}

	return time.Unix(unix, 0).UTC(), true, nil
}

func (s *redisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	if err := s.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

func (s *redisStore) Close() error { return s.rdb.Close() }
