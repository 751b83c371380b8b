// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/golfclapp/backoffice/internal/api/handlers"
	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/session"
	"github.com/golfclapp/backoffice/internal/storage"
	"github.com/golfclapp/backoffice/internal/websocket"
)

// Deps are the services the router wires into handlers.
type Deps struct {
	DB       *storage.DB
	Hub      *websocket.Hub
	Sessions *session.Manager
	Audit    *storage.AuditRepository

	// Location is the zone labels are rendered in. Nil means UTC.
	Location *time.Location
	// StaticDir is served at / when set.
	StaticDir string
	// CSRFKey enables CSRF protection when non-empty.
	CSRFKey      []byte
	CookieSecure bool
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	events := websocket.NewEventBroadcaster(d.Hub)

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.ErrorRecovery)
	if len(d.CSRFKey) > 0 {
		r.Use(middleware.CSRF(d.CSRFKey, d.CookieSecure))
	}

	api := r.PathPrefix("/api").Subrouter()

	// Public endpoints
	api.HandleFunc("/health", handlers.HealthCheck(d.DB, d.Hub, d.Sessions)).Methods("GET")
	api.HandleFunc("/session", handlers.Login(d.Sessions, d.CookieSecure)).Methods("POST")
	api.HandleFunc("/session", handlers.Logout(d.Sessions)).Methods("DELETE")

	// Everything else needs a session
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.RequireSession(d.Sessions))

	authed.HandleFunc("/session", handlers.GetSession()).Methods("GET")
	authed.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub)).Methods("GET")

	// Courses
	authed.HandleFunc("/courses", handlers.ListCourses()).Methods("GET")
	authed.HandleFunc("/courses/refresh", handlers.RefreshCourses(d.Sessions, events)).Methods("POST")
	authed.HandleFunc("/courses/{id}/select", handlers.SelectCourse(d.Sessions)).Methods("POST")
	authed.HandleFunc("/courses/{id}/prices.ics", handlers.ExportICS(d.Now)).Methods("GET")

	// Calendar of the selected course
	authed.HandleFunc("/calendar", handlers.GetCalendar(d.Location)).Methods("GET")
	authed.HandleFunc("/calendar/next", handlers.NextMonth(d.Sessions, d.Location)).Methods("POST")
	authed.HandleFunc("/calendar/prev", handlers.PrevMonth(d.Sessions, d.Location)).Methods("POST")
	authed.HandleFunc("/calendar/days/{day}", handlers.GetDay(d.Location)).Methods("GET")
	authed.HandleFunc("/calendar/export.xlsx", handlers.ExportXLSX(d.Location)).Methods("GET")

	// Price ranges
	authed.HandleFunc("/price-ranges/draft", handlers.GetDraft(d.Now)).Methods("GET")
	authed.HandleFunc("/price-ranges", handlers.SavePriceRange(d.Audit, events)).Methods("POST")
	authed.HandleFunc("/price-ranges/{id}", handlers.DeletePriceRange(d.Audit, events)).Methods("DELETE")
	authed.HandleFunc("/price-ranges/daily/preview", handlers.PreviewDaily()).Methods("POST")
	authed.HandleFunc("/price-ranges/daily", handlers.CreateDaily(d.Audit, events)).Methods("POST")
	authed.HandleFunc("/price-ranges/bulk-delete/preview", handlers.PreviewBulkDelete()).Methods("POST")
	authed.HandleFunc("/price-ranges/bulk-delete", handlers.BulkDelete(d.Audit, events)).Methods("POST")

	// Users
	authed.HandleFunc("/users", handlers.ListUsers(d.Sessions)).Methods("GET")
	authed.HandleFunc("/users/next", handlers.NextUsers(d.Sessions)).Methods("POST")
	authed.HandleFunc("/users/prev", handlers.PrevUsers(d.Sessions)).Methods("POST")

	// Audit journal
	authed.HandleFunc("/audit", handlers.ListAudit(d.Audit)).Methods("GET")

	// Serve static frontend files
	if d.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.StaticDir)))
	}

	return r
}
