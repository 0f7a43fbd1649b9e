// recover.go реализует перехватчик паник для HTTP-обработчиков.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/pribylovaa/booking-platform/auth-core/internal/pkg/log"

	"github.com/gin-gonic/gin"
)

// Recover перехватывает паники в обработчиках, логирует их и отвечает
// клиенту нейтральной ошибкой 500 без раскрытия внутренних деталей.
// Если в контексте уже есть логгер (см. pkg/log), используется он;
// иначе — переданный base (если не nil), либо slog.Default().
func Recover(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				l := log.From(c.Request.Context())
				if l == slog.Default() && base != nil {
					l = base
				}

				l.Error("panic_recovered",
					slog.String("path", c.FullPath()),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()

		c.Next()
	}
}
