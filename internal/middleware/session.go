package middleware

import (
	"net/http"

	"github.com/fitcoach/api-server-go/internal/audit"
	"github.com/fitcoach/api-server-go/internal/session"
)

// SessionActivity records activity against the idle tracker for each
// authenticated request. When the caller's previous session lapsed, the
// request still proceeds (the touch starts a fresh session) but the
// response carries an X-Session-Expired header so clients can reset
// local state.
type SessionActivity struct {
	tracker *session.Tracker
}

func NewSessionActivity(tracker *session.Tracker) *SessionActivity {
	return &SessionActivity{tracker: tracker}
}

func (m *SessionActivity) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		if identity == "" {
			identity = r.Header.Get("X-User-ID")
		}

		if m.tracker.Touch(identity) {
			audit.LogFromRequest(r, audit.Event{
				Type:     audit.EventSessionExpired,
				Identity: identity,
			})
			w.Header().Set("X-Session-Expired", "true")
		}

		next.ServeHTTP(w, r)
	})
}
