package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/session"
	"github.com/golfclapp/backoffice/internal/websocket"
)

// CourseResponse represents a course in API responses.
type CourseResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RangeCount int    `json:"rangeCount"`
	Selected   bool   `json:"selected"`
}

// RefreshResponse reports a snapshot refresh.
type RefreshResponse struct {
	Generation uint64 `json:"generation"`
	Applied    bool   `json:"applied"`
	CourseID   string `json:"courseId"`
	RangeCount int    `json:"rangeCount"`
}

// ListCourses returns the courses of the current snapshot.
func ListCourses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFrom(r.Context())
		selected := sess.State().CourseID

		courses := []CourseResponse{}
		for _, snap := range sess.Snapshots() {
			courses = append(courses, CourseResponse{
				ID:         snap.Course.ID,
				Name:       snap.Course.Name,
				RangeCount: len(snap.PriceRanges),
				Selected:   snap.Course.ID == selected,
			})
		}
		writeJSON(w, http.StatusOK, courses)
	}
}

// SelectCourse makes a course current and resets the view to this month.
func SelectCourse(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFrom(r.Context())
		if err := sess.SelectCourse(mux.Vars(r)["id"]); err != nil {
			writeSessionError(w, err)
			return
		}
		persist(r.Context(), manager, sess)
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

// RefreshCourses re-fetches every course snapshot.
func RefreshCourses(manager *session.Manager, events *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFrom(r.Context())
		res, err := sess.Refresh(r.Context())
		if err != nil {
			writeSessionError(w, err)
			return
		}
		persist(r.Context(), manager, sess)
		if res.Applied {
			events.SnapshotReplaced(sess.ID(), res.CourseID, res.RangeCount, res.Generation)
		}
		writeJSON(w, http.StatusOK, RefreshResponse(res))
	}
}
