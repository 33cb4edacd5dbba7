package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/gin-gonic/gin"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// RequireSecret для входящих вебхуков провайдеров. Пустой секрет закрывает маршрут целиком.
func RequireSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(WebhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": response.MsgUnauthorized})
			return
		}
		c.Next()
	}
}
