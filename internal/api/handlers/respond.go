// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/pricing"
	"github.com/golfclapp/backoffice/internal/session"
	"github.com/golfclapp/backoffice/internal/storage"
	"github.com/golfclapp/backoffice/internal/storage/models"
	"github.com/golfclapp/backoffice/internal/websocket"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeSessionError maps errors from session commands onto API errors.
func writeSessionError(w http.ResponseWriter, err error) {
	var apiErr *backoffice.Error
	switch {
	case errors.Is(err, session.ErrNoCourse):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Select a course first")
	case errors.Is(err, session.ErrUnknownCourse):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Course not found")
	case errors.Is(err, session.ErrInvalidRange),
		errors.Is(err, session.ErrInvalidDay),
		errors.Is(err, pricing.ErrPlanInverted),
		errors.Is(err, pricing.ErrNegativePrice):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
	case backoffice.IsUnauthorized(err), errors.Is(err, backoffice.ErrMissingAPIKey):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "The API key was rejected")
	case errors.As(err, &apiErr):
		middleware.WriteError(w, http.StatusBadGateway, middleware.ErrUpstream, err.Error())
	default:
		slog.Error("request failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "An unexpected error occurred")
	}
}

// WarningHeader carries a warning on a request that otherwise succeeded.
const WarningHeader = "X-Backoffice-Warning"

// mutationFailed writes the error response of a failed mutation and
// reports whether the handler must stop. A mutation that landed upstream
// but could not be re-fetched is answered as a success with a warning.
func mutationFailed(w http.ResponseWriter, events *websocket.EventBroadcaster, sess *session.Session, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, session.ErrRefreshAfterMutation) {
		slog.Warn("refresh after mutation failed", "session", sess.ID(), "error", err)
		w.Header().Set(WarningHeader, "Change saved; the calendar could not be refreshed")
		events.Notify(sess.ID(), "warning", "Refresh failed", err.Error())
		return false
	}
	writeSessionError(w, err)
	return true
}

// persist saves the session's durable state; failures only log.
func persist(ctx context.Context, manager *session.Manager, sess *session.Session) {
	if err := manager.Persist(ctx, sess); err != nil {
		slog.Warn("persisting session failed", "session", sess.ID(), "error", err)
	}
}

// record journals a mutation; failures only log. A refresh failing after
// the mutation landed is journaled as a success.
func record(ctx context.Context, audit *storage.AuditRepository, sess *session.Session, action models.AuditAction, courseID string, ids []string, err error) {
	entry := &models.AuditEntry{
		SessionID: sess.ID(),
		Action:    action,
		CourseID:  courseID,
		RangeIDs:  ids,
		Outcome:   models.OutcomeOK,
	}
	if err != nil && !errors.Is(err, session.ErrRefreshAfterMutation) {
		entry.Outcome = models.OutcomeError
		entry.Error = err.Error()
	}
	if err := audit.Record(ctx, entry); err != nil {
		slog.Warn("recording audit entry failed", "action", action, "error", err)
	}
}

// announceSnapshot tells the session's browsers that the selected course
// snapshot was replaced.
func announceSnapshot(events *websocket.EventBroadcaster, sess *session.Session) {
	snap, err := sess.Selected()
	if err != nil {
		return
	}
	events.SnapshotReplaced(sess.ID(), snap.Course.ID, len(snap.PriceRanges), sess.Generation())
}
