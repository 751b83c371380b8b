package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/storage"
	"github.com/golfclapp/backoffice/internal/storage/models"
)

// ListAudit returns the newest journaled mutations, optionally for one
// course (?course=) and capped by ?limit=.
func ListAudit(audit *storage.AuditRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit := storage.DefaultAuditLimit
		if s := q.Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid limit")
				return
			}
			limit = n
		}

		var (
			entries []models.AuditEntry
			err     error
		)
		if course := q.Get("course"); course != "" {
			entries, err = audit.ListByCourse(r.Context(), course, limit)
		} else {
			entries, err = audit.List(r.Context(), limit)
		}
		if err != nil {
			slog.Error("listing audit entries failed", "error", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to list audit entries")
			return
		}
		if entries == nil {
			entries = []models.AuditEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
