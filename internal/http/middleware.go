package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"agro-herders-service/internal/auth"
	"agro-herders-service/internal/service"
)

const (
	ctxKeyClaims    = "claims"
	ctxKeyRequestID = "request_id"

	headerRequestID = "X-Request-ID"
	bearerParts     = 2
)

func currentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ctxKeyClaims); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func currentUserID(c *gin.Context) string {
	if claims := currentClaims(c); claims != nil {
		return claims.Subject
	}
	return ""
}

// AuthMiddleware requires a valid, unrevoked bearer token and stores its
// claims on the context.
func AuthMiddleware(authService *service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", bearerParts)
		if len(parts) != bearerParts || !strings.EqualFold(parts[0], "bearer") {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("Not authenticated"))
			return
		}

		claims, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			log.Warn().
				Err(err).
				Str("path", c.Request.URL.Path).
				Str("ip", c.ClientIP()).
				Msg("token rejected")
			status := http.StatusUnauthorized
			message := "Could not validate credentials"
			if !errors.Is(err, service.ErrUnauthorized) {
				status = http.StatusServiceUnavailable
				message = "service temporarily unavailable"
			}
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(status, errorResponse(message))
			return
		}

		c.Set(ctxKeyClaims, claims)
		c.Next()
	}
}

// RequestLogger tags each request with an id and logs its outcome.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, requestID)
		c.Header(headerRequestID, requestID)

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}

// LoginRateLimiter throttles login attempts per client IP. Idle limiters
// expire from the cache.
func LoginRateLimiter(rps float64, burst int, log zerolog.Logger) gin.HandlerFunc {
	limiters := cache.New(15*time.Minute, 5*time.Minute)
	return func(c *gin.Context) {
		ip := c.ClientIP()

		var limiter *rate.Limiter
		if v, found := limiters.Get(ip); found {
			limiter = v.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			if err := limiters.Add(ip, limiter, cache.DefaultExpiration); err != nil {
				// lost the race with a concurrent request from the same IP
				if v, found := limiters.Get(ip); found {
					limiter = v.(*rate.Limiter)
				}
			}
		}

		if !limiter.Allow() {
			log.Warn().Str("ip", ip).Msg("login rate limit exceeded")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse("Too many login attempts, try again later"))
			return
		}
		limiters.Set(ip, limiter, cache.DefaultExpiration)
		c.Next()
	}
}
