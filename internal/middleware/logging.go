package middleware

import (
	"log/slog"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLogger логирует HTTP-запросы и кладёт обогащённый логгер в
// контекст запроса.
//
// Поведение и формат логов:
//   - Вытягивает X-Request-Id из заголовков, иначе генерирует UUID;
//   - Кладёт *slog.Logger с request_id/method/path/peer в context
//     (pkg/log), чтобы он был доступен глубже по стеку;
//   - После выполнения обработчика пишет одну строку уровня Info:
//     msg="http", status=<код>, dur=<время выполнения>.
//
// Безопасность:
//   - Логи не содержат тел запросов и токенов — только метаданные.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	if base == nil {
		base = slog.Default()
	}

	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}

		l := base.With(
			slog.String("request_id", rid),
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("peer", c.ClientIP()),
		)
		c.Request = c.Request.WithContext(log.Into(c.Request.Context(), l))
		c.Header("X-Request-Id", rid)

		c.Next()

		l.Info("http",
			slog.Int("status", c.Writer.Status()),
			slog.Duration("dur", time.Since(start)),
		)
	}
}
