package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/pricing"
	"github.com/golfclapp/backoffice/internal/session"
)

// GetCalendar renders the selected course for the viewed month.
func GetCalendar(loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mv, err := middleware.SessionFrom(r.Context()).MonthView(loc)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, mv)
	}
}

// NextMonth advances the view and renders it.
func NextMonth(manager *session.Manager, loc *time.Location) http.HandlerFunc {
	return moveMonth(manager, loc, (*session.Session).NextMonth)
}

// PrevMonth moves the view back and renders it.
func PrevMonth(manager *session.Manager, loc *time.Location) http.HandlerFunc {
	return moveMonth(manager, loc, (*session.Session).PrevMonth)
}

func moveMonth(manager *session.Manager, loc *time.Location, move func(*session.Session) pricing.ViewState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFrom(r.Context())
		move(sess)
		persist(r.Context(), manager, sess)

		mv, err := sess.MonthView(loc)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, mv)
	}
}

// GetDay lists the ranges covering one day of the viewed month.
func GetDay(loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := strconv.Atoi(mux.Vars(r)["day"])
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid day")
			return
		}

		detail, err := middleware.SessionFrom(r.Context()).DayDetail(day, loc)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}
