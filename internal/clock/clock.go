// clock отделяет бизнес-логику от системного времени: истечение
// токенов и окон блокировки проверяется через инжектируемый Clock,
// что позволяет в тестах «проматывать» время без реальных sleep.
package clock

import (
	"sync"
	"time"
)

// Clock выдаёт текущее время.
type Clock interface {
	Now() time.Time
}

// System — продакшен-реализация поверх time.Now (UTC).
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Manual — управляемые часы для тестов.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual создаёт часы, остановленные на start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance сдвигает время вперёд на d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
