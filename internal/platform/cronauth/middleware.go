// Package cronauth は外部スケジューラ専用エンドポイントの共有シークレット認証を提供します。
package cronauth

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// EnvKeyCronSecret はトリガーエンドポイント共有シークレットの環境変数キーです。
const EnvKeyCronSecret = "CRON_SECRET"

// SecretRequired returns a Gin middleware function that restricts access to
// callers presenting the shared cron secret as a bearer token.
func SecretRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := os.Getenv(EnvKeyCronSecret)
		if secret == "" {
			// Server misconfiguration (CRON_SECRET not set)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}

		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid cron secret"})
			return
		}
		c.Next()
	}
}
