package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CronAuth gates the cron trigger surface behind a shared secret
// (spec.md §6 "Trigger surface"): the configured secret must match either
// the X-Cron-Secret header or a bearer token in Authorization. An empty
// secret leaves the endpoint open, matching the spec's documented
// behavior for undeployed/local setups.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		if c.GetHeader("X-Cron-Secret") == secret {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == secret {
			c.Next()
			return
		}

		c.AbortWithStatus(http.StatusUnauthorized)
	}
}
