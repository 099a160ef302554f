package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fitcoach/api-server-go/internal/audit"
	apperrors "github.com/fitcoach/api-server-go/internal/errors"
	"github.com/fitcoach/api-server-go/internal/httputil"
	"github.com/fitcoach/api-server-go/internal/service"
)

// RateLimit caps requests to a single route. Unauthenticated routes are
// keyed by client IP, authenticated ones by the caller's identity.
type RateLimit struct {
	limiter *service.RateLimiter
	route   string
	limit   service.Limit
}

func NewRateLimit(limiter *service.RateLimiter, route string, limit service.Limit) *RateLimit {
	return &RateLimit{limiter: limiter, route: route, limit: limit}
}

func (m *RateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := GetIdentity(r.Context())
		if subject == "" {
			// RealIP runs earlier in the chain, so RemoteAddr already holds
			// the proxy-resolved client address. Reading forwarding headers
			// here would let clients mint fresh keys per request.
			subject = r.RemoteAddr
		}

		allowed, resetAt := m.limiter.Allow(r.Context(), m.route, subject, m.limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit.Requests))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			log.Warn().Str("route", m.route).Msg("rate limit exceeded")
			audit.LogFromRequest(r, audit.Event{
				Type:     audit.EventRateLimitExceed,
				Identity: subject,
				Details:  map[string]interface{}{"route": m.route},
			})
			retryAfter := time.Until(resetAt).Seconds()
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))
			httputil.WriteError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}
