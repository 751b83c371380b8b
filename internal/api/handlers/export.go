package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/export"
)

// ExportICS serves a course's price ranges as an iCalendar feed.
func ExportICS(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		for _, snap := range middleware.SessionFrom(r.Context()).Snapshots() {
			if snap.Course.ID != id {
				continue
			}

			var buf bytes.Buffer
			if _, err := export.WriteICS(&buf, snap, now()); err != nil {
				writeSessionError(w, err)
				return
			}
			w.Header().Set("Content-Type", export.ICSContentType)
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-prices.ics"`, id))
			w.Write(buf.Bytes())
			return
		}
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Course not found")
	}
}

// ExportXLSX serves the viewed month of the selected course as a workbook.
func ExportXLSX(loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mv, err := middleware.SessionFrom(r.Context()).MonthView(loc)
		if err != nil {
			writeSessionError(w, err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, mv, loc); err != nil {
			slog.Error("rendering workbook failed", "course", mv.Course.ID, "error", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to render workbook")
			return
		}

		name := fmt.Sprintf("%s-%04d-%02d.xlsx", mv.Course.ID, mv.View.Year, mv.View.Month+1)
		w.Header().Set("Content-Type", export.XLSXContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		w.Write(buf.Bytes())
	}
}
