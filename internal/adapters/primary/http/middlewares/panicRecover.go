package middlewares

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// RecoveryLogger паника в хендлере превращается в 500. Транзакции, открытые через
// WithTransaction, к этому моменту уже откатаны.
func RecoveryLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			metrics.RecordPanic()
			log.ErrorContext(c.Request.Context(), "panic recovered",
				"panic", r,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": response.MsgInternal})
		}()
		c.Next()
	}
}
