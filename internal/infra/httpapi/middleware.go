package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"chama_admin/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	actorKey             = "actorID"
	callbackSecretHeader = "X-Callback-Secret"
)

// AdminAuth checks the bearer token and marks the request as made by the
// admin member. An empty token rejects every request.
func AdminAuth(token, adminUserID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = strings.TrimSpace(parts[1])
			}
		}

		// ?token= for downloads where headers cannot be set
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}

		if token == "" || tokenStr == "" || !equalSecret(token, tokenStr) {
			Error(c, http.StatusUnauthorized, CodeAuth, "Not authenticated")
			c.Abort()
			return
		}

		c.Set(actorKey, adminUserID)
		c.Next()
	}
}

// CallbackSecret guards the payment callback with a shared secret header.
// An empty secret leaves the route open.
func CallbackSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && !equalSecret(secret, c.GetHeader(callbackSecretHeader)) {
			Error(c, http.StatusUnauthorized, CodeAuth, "Invalid callback secret")
			c.Abort()
			return
		}
		c.Next()
	}
}

func equalSecret(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func actorID(c *gin.Context) string {
	return c.GetString(actorKey)
}

// RequestLogger logs every request and records the API metrics.
func RequestLogger(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := metrics.NewTimer()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		timer.ObserveDuration(metrics.APIRequestDuration.WithLabelValues(c.Request.Method, route))

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": timer.Duration().Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if status >= http.StatusInternalServerError {
			entry.Error("Request failed")
			return
		}
		entry.Info("Request handled")
	}
}
