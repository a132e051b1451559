package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/internal/common"
)

// CronSecretHeader carries the shared secret of scheduled callers
const CronSecretHeader = "X-Cron-Secret"

// CronAuth admits requests that present the configured cron secret.
// An empty secret disables the endpoints entirely.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(CronSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
			common.ErrorResponse(c, http.StatusUnauthorized, "Invalid cron secret", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
