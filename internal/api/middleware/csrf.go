package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFHeader carries the token on responses and must be echoed on unsafe
// requests.
const CSRFHeader = "X-CSRF-Token"

// CSRF returns gorilla/csrf protection keyed by key. Every response carries
// the current token in CSRFHeader.
func CSRF(key []byte, secure bool) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			msg := "Invalid CSRF token"
			if reason := csrf.FailureReason(r); reason != nil {
				msg += ": " + reason.Error()
			}
			WriteError(w, http.StatusForbidden, ErrForbidden, msg)
		})),
	)

	return func(next http.Handler) http.Handler {
		return protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(CSRFHeader, csrf.Token(r))
			next.ServeHTTP(w, r)
		}))
	}
}
