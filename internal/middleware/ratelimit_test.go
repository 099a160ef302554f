package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/api-server-go/internal/service"
)

func newTestRateLimit(t *testing.T, limit service.Limit) *RateLimit {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRateLimit(service.NewRateLimiter(client), "login", limit)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("denies beyond the budget", func(t *testing.T) {
		handler := newTestRateLimit(t, service.PerMinute(2)).Handler(okHandler())

		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("sets rate limit headers on allowed requests", func(t *testing.T) {
		handler := newTestRateLimit(t, service.PerMinute(5)).Handler(okHandler())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("keys unauthenticated requests by client address", func(t *testing.T) {
		handler := newTestRateLimit(t, service.PerMinute(1)).Handler(okHandler())

		first := httptest.NewRequest(http.MethodPost, "/", nil)
		first.RemoteAddr = "1.2.3.4:1111"
		handler.ServeHTTP(httptest.NewRecorder(), first)

		blocked := httptest.NewRecorder()
		handler.ServeHTTP(blocked, first)
		assert.Equal(t, http.StatusTooManyRequests, blocked.Code)

		other := httptest.NewRequest(http.MethodPost, "/", nil)
		other.RemoteAddr = "5.6.7.8:2222"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, other)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rotating forwarding headers cannot mint fresh keys", func(t *testing.T) {
		handler := newTestRateLimit(t, service.PerMinute(1)).Handler(okHandler())

		first := httptest.NewRequest(http.MethodPost, "/", nil)
		first.RemoteAddr = "1.2.3.4:1111"
		first.Header.Set("X-Forwarded-For", "10.0.0.1")
		handler.ServeHTTP(httptest.NewRecorder(), first)

		// Same connection, different claimed origin. Still over budget.
		second := httptest.NewRequest(http.MethodPost, "/", nil)
		second.RemoteAddr = "1.2.3.4:1111"
		second.Header.Set("X-Forwarded-For", "10.0.0.2")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, second)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("keys authenticated requests by identity", func(t *testing.T) {
		handler := newTestRateLimit(t, service.PerMinute(1)).Handler(okHandler())

		handler.ServeHTTP(httptest.NewRecorder(), authenticatedRequest("a@example.com"))

		blocked := httptest.NewRecorder()
		handler.ServeHTTP(blocked, authenticatedRequest("a@example.com"))
		assert.Equal(t, http.StatusTooManyRequests, blocked.Code)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authenticatedRequest("b@example.com"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
