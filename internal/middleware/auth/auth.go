package auth

import (
	"context"
	"net/http"
	"time"

	"sprout/internal/core"
)

// CookieName is the name of the session cookie.
const CookieName = "sprout_session"

// Context key type to avoid collisions.
type contextKey string

const sessionKey contextKey = "session"

// Sessions validates tokens and extends sessions nearing expiry.
type Sessions interface {
	ValidateSession(ctx context.Context, token string) (core.Session, error)
	RenewSession(ctx context.Context, token string, expiresAt time.Time) error
}

// Middleware guards routes behind a session cookie. Sessions roll: a request
// in the second half of the session's lifetime extends it, so active users
// stay signed in while idle sessions expire.
type Middleware struct {
	sessions       Sessions
	ttl            time.Duration
	secure         bool
	onUnauthorized func(http.ResponseWriter, *http.Request)
}

// NewMiddleware creates the auth middleware. onUnauthorized renders the 401
// response; when nil a plain-text error is written.
func NewMiddleware(sessions Sessions, ttl time.Duration, secure bool, onUnauthorized func(http.ResponseWriter, *http.Request)) *Middleware {
	return &Middleware{
		sessions:       sessions,
		ttl:            ttl,
		secure:         secure,
		onUnauthorized: onUnauthorized,
	}
}

// Require wraps a handler so it only runs with a valid session in context.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			m.reject(w, r)
			return
		}

		session, err := m.sessions.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			m.ClearCookie(w)
			m.reject(w, r)
			return
		}

		// Rolling session: renew if past halfway point
		if time.Until(session.ExpiresAt) < m.ttl/2 {
			newExpiresAt := time.Now().Add(m.ttl)
			if err := m.sessions.RenewSession(r.Context(), cookie.Value, newExpiresAt); err == nil {
				session.ExpiresAt = newExpiresAt
				m.SetCookie(w, cookie.Value)
			}
			// If renewal fails, just continue with the current session
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request) {
	if m.onUnauthorized != nil {
		m.onUnauthorized(w, r)
		return
	}
	http.Error(w, "Authentication required", http.StatusUnauthorized)
}

// SetCookie issues the session cookie for the configured lifetime.
func (m *Middleware) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *Middleware) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFrom retrieves the authenticated session from request context.
func SessionFrom(ctx context.Context) (core.Session, bool) {
	session, ok := ctx.Value(sessionKey).(core.Session)
	return session, ok
}

// UserID returns the authenticated user's ID, or 0 when unauthenticated.
func UserID(ctx context.Context) int64 {
	if session, ok := SessionFrom(ctx); ok {
		return session.UserID
	}
	return 0
}
