package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/logger"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/response"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// WindowCounter counts hits in a fixed window shared across instances
type WindowCounter interface {
	IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitConfig holds fixed-window rate limiting configuration
type RateLimitConfig struct {
	Counter   WindowCounter
	Limit     int
	Window    time.Duration
	KeyPrefix string
	Logger    *logger.Logger
}

// RateLimiter limits requests per caller. Authenticated callers are keyed by user ID,
// anonymous ones by client IP. Counter failures let the request through.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit:"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	return func(c *gin.Context) {
		if cfg.Counter == nil || cfg.Limit <= 0 {
			c.Next()
			return
		}

		ctx, span := telemetry.StartSpan(c.Request.Context(), "middleware.rate_limiter")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		subject := GetUserID(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		span.SetAttributes(attribute.String("rate_limit.subject", subject))

		count, err := cfg.Counter.IncrWithTTL(ctx, cfg.KeyPrefix+subject, cfg.Window)
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request",
				zap.String("subject", subject),
				zap.Error(err),
			)
			span.RecordError(err)
			c.Next()
			return
		}

		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Limit) {
			span.SetStatus(codes.Error, "rate limit exceeded")
			retryAfter := int(cfg.Window.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(response.ErrCodeRateLimited,
				"Too many scans. Please retry after "+strconv.Itoa(retryAfter)+" second(s)."))
			return
		}

		c.Next()
	}
}
