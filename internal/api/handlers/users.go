package handlers

import (
	"context"
	"net/http"

	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/session"
)

// UsersResponse is one page of the user list.
type UsersResponse struct {
	Items      []backoffice.User `json:"items"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	Search     string            `json:"search"`
}

type usersCommand func(*session.Session, context.Context) (backoffice.UserPage, error)

// ListUsers loads the current user page. A search query parameter starts a
// new search at page 1.
func ListUsers(manager *session.Manager) http.HandlerFunc {
	return usersHandler(manager, func(sess *session.Session, ctx context.Context) (backoffice.UserPage, error) {
		return sess.LoadUsers(ctx)
	})
}

// NextUsers moves to the next user page.
func NextUsers(manager *session.Manager) http.HandlerFunc {
	return usersHandler(manager, (*session.Session).NextUsersPage)
}

// PrevUsers moves to the previous user page.
func PrevUsers(manager *session.Manager) http.HandlerFunc {
	return usersHandler(manager, (*session.Session).PrevUsersPage)
}

func usersHandler(manager *session.Manager, cmd usersCommand) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := middleware.SessionFrom(ctx)

		var (
			page backoffice.UserPage
			err  error
		)
		if q := r.URL.Query(); q.Has("search") {
			page, err = sess.SearchUsers(ctx, q.Get("search"))
		} else {
			page, err = cmd(sess, ctx)
		}
		if err != nil {
			writeSessionError(w, err)
			return
		}
		persist(ctx, manager, sess)

		n, search := sess.UsersPosition()
		writeJSON(w, http.StatusOK, UsersResponse{
			Items:      page.Items,
			Page:       n,
			TotalPages: page.TotalPages,
			Search:     search,
		})
	}
}
