// metrics регистрирует Prometheus-счётчики security-событий ядра.
// Экспорт — через promhttp на /metrics (см. cmd/auth-core).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Logins — исходы попыток входа: success, invalid_credentials,
	// account_disabled, account_locked, too_many_attempts, error.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth_core",
		Name:      "logins_total",
		Help:      "Login attempts by outcome.",
	}, []string{"result"})

	// Lockouts — срабатывания блокировки по виду ключа (acct/addr).
	Lockouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth_core",
		Name:      "lockouts_total",
		Help:      "Lockouts engaged by counter kind.",
	}, []string{"kind"})

	// ReplaysDetected — предъявления уже ротированных/отозванных
	// refresh-токенов. Сильнейший сигнал кражи токена, алертится отдельно.
	ReplaysDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "auth_core",
		Name:      "replays_detected_total",
		Help:      "Refresh token replay detections.",
	})

	// TokensSwept — записи, удалённые фоновой уборкой.
	TokensSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "auth_core",
		Name:      "tokens_swept_total",
		Help:      "Stale refresh token rows deleted by the janitor.",
	})
)
