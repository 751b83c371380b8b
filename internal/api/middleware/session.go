package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/golfclapp/backoffice/internal/session"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "backoffice_session"

type sessionKey struct{}

// RequireSession resolves the session cookie and rejects the request with
// 401 when there is no live session.
func RequireSession(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Login required")
				return
			}

			sess, err := manager.Get(r.Context(), cookie.Value)
			if errors.Is(err, session.ErrNotFound) {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Session expired")
				return
			}
			if err != nil {
				slog.Error("loading session", "error", err)
				WriteError(w, http.StatusInternalServerError, ErrInternalError, "Failed to load session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session stored by RequireSession, or nil.
func SessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}
