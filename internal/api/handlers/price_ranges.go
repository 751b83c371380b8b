package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/pricing"
	"github.com/golfclapp/backoffice/internal/storage"
	"github.com/golfclapp/backoffice/internal/storage/models"
	"github.com/golfclapp/backoffice/internal/websocket"
)

// DailyRequest is the body of the daily price range endpoints. Dates are
// YYYY-MM-DD, times HH:MM or HH:MM:SS, the price is in euros.
type DailyRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Price     string `json:"price"`
}

// Plan parses the request into a daily plan.
func (d DailyRequest) Plan() (pricing.DailyPlan, error) {
	var (
		plan pricing.DailyPlan
		err  error
	)
	if plan.StartDate, err = pricing.ParseDate(d.StartDate); err != nil {
		return plan, fmt.Errorf("start date: %w", err)
	}
	if plan.EndDate, err = pricing.ParseDate(d.EndDate); err != nil {
		return plan, fmt.Errorf("end date: %w", err)
	}
	if plan.StartTime, err = pricing.ParseClock(d.StartTime); err != nil {
		return plan, fmt.Errorf("start time: %w", err)
	}
	if plan.EndTime, err = pricing.ParseClock(d.EndTime); err != nil {
		return plan, fmt.Errorf("end time: %w", err)
	}
	if plan.Price, err = pricing.ParsePrice(d.Price); err != nil {
		return plan, err
	}
	return plan, plan.Validate()
}

// WindowRequest selects whole days from From to To inclusive.
type WindowRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (wr WindowRequest) dates() (from, to pricing.Date, err error) {
	if from, err = pricing.ParseDate(wr.From); err != nil {
		return from, to, fmt.Errorf("from: %w", err)
	}
	if to, err = pricing.ParseDate(wr.To); err != nil {
		return from, to, fmt.Errorf("to: %w", err)
	}
	return from, to, nil
}

// RangesResponse lists price ranges.
type RangesResponse struct {
	Count  int                  `json:"count"`
	Ranges []pricing.PriceRange `json:"ranges"`
}

// DeletedResponse lists deleted range ids.
type DeletedResponse struct {
	Deleted []string `json:"deleted"`
}

// GetDraft returns the form defaults for a new range, or the form values of
// an existing range of the selected course when ?id= is given.
func GetDraft(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSON(w, http.StatusOK, pricing.NewRangeDraft(now()))
			return
		}

		snap, err := middleware.SessionFrom(r.Context()).Selected()
		if err != nil {
			writeSessionError(w, err)
			return
		}
		for _, pr := range snap.PriceRanges {
			if pr.ID == id {
				writeJSON(w, http.StatusOK, pricing.DraftFromRange(pr))
				return
			}
		}
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Price range not found")
	}
}

// SavePriceRange creates or updates a range of the selected course.
func SavePriceRange(audit *storage.AuditRepository, events *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft pricing.RangeDraft
		if !decodeJSON(w, r, &draft) {
			return
		}

		ctx := r.Context()
		sess := middleware.SessionFrom(ctx)
		courseID := sess.State().CourseID

		saved, err := sess.SavePriceRange(ctx, draft)
		record(ctx, audit, sess, models.ActionSaveRange, courseID, idList(saved.ID), err)
		if mutationFailed(w, events, sess, err) {
			return
		}

		events.PriceRangeSaved(sess.ID(), saved)
		if err == nil {
			announceSnapshot(events, sess)
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

// DeletePriceRange deletes one range.
func DeletePriceRange(audit *storage.AuditRepository, events *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()
		sess := middleware.SessionFrom(ctx)
		courseID := sess.State().CourseID

		err := sess.DeletePriceRange(ctx, id)
		record(ctx, audit, sess, models.ActionDeleteRange, courseID, []string{id}, err)
		if mutationFailed(w, events, sess, err) {
			return
		}

		events.PriceRangesDeleted(sess.ID(), courseID, []string{id})
		if err == nil {
			announceSnapshot(events, sess)
		}
		writeJSON(w, http.StatusOK, DeletedResponse{Deleted: []string{id}})
	}
}

// PreviewDaily returns the ranges a daily request would create.
func PreviewDaily() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DailyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		plan, err := req.Plan()
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		ranges, err := middleware.SessionFrom(r.Context()).PreviewDaily(plan)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RangesResponse{Count: len(ranges), Ranges: ranges})
	}
}

// CreateDaily creates a daily recurring range for the selected course.
func CreateDaily(audit *storage.AuditRepository, events *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DailyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		plan, err := req.Plan()
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		ctx := r.Context()
		sess := middleware.SessionFrom(ctx)
		courseID := sess.State().CourseID

		err = sess.CreateDaily(ctx, plan)
		record(ctx, audit, sess, models.ActionCreateDaily, courseID, nil, err)
		if mutationFailed(w, events, sess, err) {
			return
		}

		events.Notify(sess.ID(), "success", "Daily prices created",
			fmt.Sprintf("%s to %s, %s - %s", plan.StartDate, plan.EndDate, plan.StartTime, plan.EndTime))
		if err == nil {
			announceSnapshot(events, sess)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PreviewBulkDelete lists the ranges a bulk delete of the window would
// remove.
func PreviewBulkDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WindowRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		from, to, err := req.dates()
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		ranges, err := middleware.SessionFrom(r.Context()).PreviewBulkDelete(from, to)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RangesResponse{Count: len(ranges), Ranges: ranges})
	}
}

// BulkDelete removes every range of the selected course overlapping the
// window.
func BulkDelete(audit *storage.AuditRepository, events *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WindowRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		from, to, err := req.dates()
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		ctx := r.Context()
		sess := middleware.SessionFrom(ctx)
		courseID := sess.State().CourseID

		ids, err := sess.BulkDelete(ctx, from, to)
		if len(ids) > 0 || err != nil {
			record(ctx, audit, sess, models.ActionBulkDelete, courseID, ids, err)
		}
		if mutationFailed(w, events, sess, err) {
			return
		}

		if len(ids) > 0 {
			events.PriceRangesDeleted(sess.ID(), courseID, ids)
			if err == nil {
				announceSnapshot(events, sess)
			}
		}
		writeJSON(w, http.StatusOK, DeletedResponse{Deleted: ids})
	}
}

func idList(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}
