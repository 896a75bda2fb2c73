package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/imgrelay/internal/metrics"
	"github.com/kitbuilder587/imgrelay/internal/ratelimit"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"

	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
)

// RequestID берет X-Request-ID из запроса или генерирует новый.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(RequestIDKey); ok {
		if requestID, ok := id.(string); ok {
			return requestID
		}
	}
	return ""
}

// RequestLogger пишет одну строку на запрос. Query не логируем: там ключ imgbb.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", GetRequestID(c)),
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// RateLimit ограничивает запросы с одного IP скользящим окном лимитера.
// IP берется из c.ClientIP(), поэтому X-Forwarded-For учитывается только
// от доверенных прокси (Options.TrustedProxies).
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.Take(c.ClientIP())

		c.Header(RateLimitLimitHeader, strconv.Itoa(d.Limit))
		c.Header(RateLimitRemainingHeader, strconv.Itoa(d.Remaining))

		if d.Allowed {
			c.Next()
			return
		}

		if m != nil {
			m.RecordRateLimitHit()
		}

		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(d.RetryAfter)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
			Status:  statusError,
			Message: msgRateLimited,
		})
	}
}

// округляем вверх, минимум секунда
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
