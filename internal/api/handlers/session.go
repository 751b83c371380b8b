package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/pricing"
	"github.com/golfclapp/backoffice/internal/session"
)

// LoginRequest is the body of POST /api/session.
type LoginRequest struct {
	APIKey string `json:"apiKey"`
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	CourseID   string            `json:"courseId"`
	View       pricing.ViewState `json:"view"`
	Generation uint64            `json:"generation"`
	Courses    int               `json:"courses"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func sessionResponse(sess *session.Session) SessionResponse {
	st := sess.State()
	return SessionResponse{
		CourseID:   st.CourseID,
		View:       st.View,
		Generation: sess.Generation(),
		Courses:    len(sess.Snapshots()),
		CreatedAt:  st.CreatedAt,
	}
}

// Login starts a session with an API key. The key is checked by fetching
// the course snapshots; a rejected key yields 401.
func Login(manager *session.Manager, secureCookie bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		ctx := r.Context()
		sess, err := manager.Create(ctx, req.APIKey)
		if errors.Is(err, session.ErrEmptyKey) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "API key is required")
			return
		}
		if err != nil {
			writeSessionError(w, err)
			return
		}

		if _, err := sess.Refresh(ctx); err != nil {
			manager.Remove(ctx, sess.ID())
			if backoffice.IsUnauthorized(err) {
				middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "The API key was rejected")
				return
			}
			writeSessionError(w, err)
			return
		}
		persist(ctx, manager, sess)

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusCreated, sessionResponse(sess))
	}
}

// Logout ends the caller's session.
func Logout(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
			if err := manager.Remove(r.Context(), cookie.Value); err != nil {
				writeSessionError(w, err)
				return
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetSession returns the caller's session.
func GetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionResponse(middleware.SessionFrom(r.Context())))
	}
}
