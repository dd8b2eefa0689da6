package httpserver

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/tablehub/internal/metrics"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// newRateLimiter throttles WebSocket upgrades per client IP with a token bucket.
// Refused clients are told how long to wait for the next token.
func newRateLimiter(upgradesPerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(upgradesPerSecond),
		Burst:     burst,
		ExpiresIn: rateLimiterExpiry,
	})
	retryAfter := strconv.Itoa(int(math.Ceil(1 / upgradesPerSecond)))

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, ip string, _ error) error {
			metrics.WebSocketConnectionsRejected.WithLabelValues(string(LimitReasonRate)).Inc()
			slog.WarnContext(c.Request().Context(), "WebSocket upgrade rate limited", "ip", ip)

			c.Response().Header().Set("Retry-After", retryAfter)
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "too many connection attempts",
			})
		},
	})
}
