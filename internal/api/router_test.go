package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golfclapp/backoffice/internal/api/handlers"
	"github.com/golfclapp/backoffice/internal/api/middleware"
	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/backoffice/backofficetest"
	"github.com/golfclapp/backoffice/internal/export"
	"github.com/golfclapp/backoffice/internal/pricing"
	"github.com/golfclapp/backoffice/internal/session"
	"github.com/golfclapp/backoffice/internal/storage"
	"github.com/golfclapp/backoffice/internal/storage/models"
	"github.com/golfclapp/backoffice/internal/websocket"
)

const testKey = "staff-key"

func fixedNow() time.Time {
	return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
}

type testEnv struct {
	url      string
	client   *http.Client
	upstream *backofficetest.Server
}

func newTestEnv(t *testing.T, csrfKey []byte) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	upstream := backofficetest.NewServer(testKey)
	t.Cleanup(upstream.Close)
	upstream.AddCourse(pricing.Course{ID: "c1", Name: "Links"})
	upstream.AddCourse(pricing.Course{ID: "c2", Name: "Parkland"})
	upstream.AddRange(pricing.PriceRange{
		Price:     1500,
		StartDate: pricing.MustTimestamp("2024-03-10T08:00:00Z"),
		EndDate:   pricing.MustTimestamp("2024-03-10T18:00:00Z"),
		CourseID:  "c1",
	})

	db, err := storage.Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hub := websocket.NewHub()
	go hub.Run(ctx)

	api := backoffice.NewClient(upstream.Config())
	sessions := session.NewManager(session.NewMemoryStore(), func(key string) session.API {
		return api.WithAPIKey(key)
	}, session.Options{UsersPageSize: 2, Now: fixedNow})

	router := NewRouter(Deps{
		DB:       db,
		Hub:      hub,
		Sessions: sessions,
		Audit:    storage.NewAuditRepository(db),
		CSRFKey:  csrfKey,
		Now:      fixedNow,
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	return &testEnv{url: ts.URL, client: &http.Client{Jar: jar}, upstream: upstream}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.url+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/session", handlers.LoginRequest{APIKey: testKey})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s status = %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %s: %v", resp.Request.URL.Path, err)
	}
	return v
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/api/health", nil)
	expectStatus(t, resp, http.StatusOK)
	if h := decode[handlers.HealthResponse](t, resp); h.Status != "healthy" || !h.DBConnected {
		t.Errorf("health = %+v", h)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	expectStatus(t, env.do(t, http.MethodGet, "/api/courses", nil), http.StatusUnauthorized)
	expectStatus(t, env.do(t, http.MethodPost, "/api/session", handlers.LoginRequest{APIKey: " "}), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodPost, "/api/session", handlers.LoginRequest{APIKey: "wrong"}), http.StatusUnauthorized)
	expectStatus(t, env.do(t, http.MethodGet, "/api/courses", nil), http.StatusUnauthorized)

	resp := env.do(t, http.MethodPost, "/api/session", handlers.LoginRequest{APIKey: testKey})
	expectStatus(t, resp, http.StatusCreated)
	sess := decode[handlers.SessionResponse](t, resp)
	if sess.CourseID != "c1" || sess.Courses != 2 || sess.View != (pricing.ViewState{Year: 2024, Month: 2}) {
		t.Errorf("session = %+v", sess)
	}

	resp = env.do(t, http.MethodGet, "/api/courses", nil)
	expectStatus(t, resp, http.StatusOK)
	courses := decode[[]handlers.CourseResponse](t, resp)
	if len(courses) != 2 || !courses[0].Selected || courses[0].RangeCount != 1 || courses[1].Selected {
		t.Errorf("courses = %+v", courses)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/session", nil), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodGet, "/api/courses", nil), http.StatusUnauthorized)
}

func TestCalendarNavigation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	resp := env.do(t, http.MethodGet, "/api/calendar", nil)
	expectStatus(t, resp, http.StatusOK)
	mv := decode[pricing.MonthView](t, resp)
	if mv.Course.ID != "c1" || len(mv.Summary) != 1 {
		t.Errorf("month view = %+v", mv)
	}

	resp = env.do(t, http.MethodPost, "/api/calendar/next", nil)
	expectStatus(t, resp, http.StatusOK)
	if mv := decode[pricing.MonthView](t, resp); mv.View != (pricing.ViewState{Year: 2024, Month: 3}) || len(mv.Summary) != 0 {
		t.Errorf("next month = %+v", mv.View)
	}
	expectStatus(t, env.do(t, http.MethodPost, "/api/calendar/prev", nil), http.StatusOK)

	resp = env.do(t, http.MethodGet, "/api/calendar/days/10", nil)
	expectStatus(t, resp, http.StatusOK)
	if d := decode[pricing.DayDetail](t, resp); len(d.Items) != 1 {
		t.Errorf("day 10 = %+v", d)
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/calendar/days/32", nil), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodGet, "/api/calendar/days/x", nil), http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/api/courses/c2/select", nil)
	expectStatus(t, resp, http.StatusOK)
	if s := decode[handlers.SessionResponse](t, resp); s.CourseID != "c2" {
		t.Errorf("selected = %q", s.CourseID)
	}
	expectStatus(t, env.do(t, http.MethodPost, "/api/courses/nope/select", nil), http.StatusNotFound)
}

func TestSaveAndBulkDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	resp := env.do(t, http.MethodPost, "/api/price-ranges", pricing.RangeDraft{
		Price:     "20",
		StartDate: "2024-03-20",
		StartTime: "07:00",
		EndDate:   "2024-03-20",
		EndTime:   "12:00",
	})
	expectStatus(t, resp, http.StatusOK)
	saved := decode[pricing.PriceRange](t, resp)
	if saved.ID == "" || saved.Price != 2000 || saved.CourseID != "c1" {
		t.Errorf("saved = %+v", saved)
	}
	if got := len(env.upstream.Ranges("c1")); got != 2 {
		t.Fatalf("upstream has %d ranges, want 2", got)
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/price-ranges", pricing.RangeDraft{Price: "x"}), http.StatusBadRequest)

	window := handlers.WindowRequest{From: "2024-03-01", To: "2024-03-31"}
	resp = env.do(t, http.MethodPost, "/api/price-ranges/bulk-delete/preview", window)
	expectStatus(t, resp, http.StatusOK)
	if p := decode[handlers.RangesResponse](t, resp); p.Count != 2 {
		t.Errorf("preview count = %d", p.Count)
	}

	resp = env.do(t, http.MethodPost, "/api/price-ranges/bulk-delete", window)
	expectStatus(t, resp, http.StatusOK)
	if d := decode[handlers.DeletedResponse](t, resp); len(d.Deleted) != 2 {
		t.Errorf("deleted = %v", d.Deleted)
	}
	if got := env.upstream.Ranges("c1"); len(got) != 0 {
		t.Errorf("upstream remaining = %+v", got)
	}

	resp = env.do(t, http.MethodPost, "/api/price-ranges/bulk-delete", window)
	expectStatus(t, resp, http.StatusOK)
	if d := decode[handlers.DeletedResponse](t, resp); d.Deleted == nil || len(d.Deleted) != 0 {
		t.Errorf("second bulk delete = %v", d.Deleted)
	}

	resp = env.do(t, http.MethodGet, "/api/audit", nil)
	expectStatus(t, resp, http.StatusOK)
	entries := decode[[]models.AuditEntry](t, resp)
	if len(entries) != 3 {
		t.Fatalf("audit entries = %+v", entries)
	}
	if entries[0].Action != models.ActionBulkDelete || len(entries[0].RangeIDs) != 2 {
		t.Errorf("newest entry = %+v", entries[0])
	}
	if entries[1].Action != models.ActionSaveRange || !entries[1].Failed() {
		t.Errorf("failed save entry = %+v", entries[1])
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/audit?limit=0", nil), http.StatusBadRequest)
}

func TestSaveRejectsNegativePrice(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	expectStatus(t, env.do(t, http.MethodPost, "/api/price-ranges", pricing.RangeDraft{
		Price:     "-12.50",
		StartDate: "2024-03-20",
		StartTime: "07:00",
		EndDate:   "2024-03-20",
		EndTime:   "12:00",
	}), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodPost, "/api/price-ranges/daily", handlers.DailyRequest{
		StartDate: "2024-04-01",
		EndDate:   "2024-04-03",
		StartTime: "07:00",
		EndTime:   "12:00",
		Price:     "-1",
	}), http.StatusBadRequest)

	if got := len(env.upstream.Ranges("c1")); got != 1 {
		t.Errorf("negative price reached upstream: %d ranges", got)
	}
}

func TestSaveWithFailedRefreshIsJournaledOK(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	env.upstream.FailNext("/GetPriceRanges", http.StatusBadGateway)
	resp := env.do(t, http.MethodPost, "/api/price-ranges", pricing.RangeDraft{
		Price:     "20",
		StartDate: "2024-03-20",
		StartTime: "07:00",
		EndDate:   "2024-03-20",
		EndTime:   "12:00",
	})
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get(handlers.WarningHeader) == "" {
		t.Error("missing refresh warning header")
	}
	if got := len(env.upstream.Ranges("c1")); got != 2 {
		t.Errorf("upstream has %d ranges, want 2", got)
	}

	resp = env.do(t, http.MethodGet, "/api/audit", nil)
	expectStatus(t, resp, http.StatusOK)
	entries := decode[[]models.AuditEntry](t, resp)
	if len(entries) != 1 || entries[0].Failed() || entries[0].Action != models.ActionSaveRange {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestDeletePriceRange(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	id := env.upstream.Ranges("c1")[0].ID
	expectStatus(t, env.do(t, http.MethodDelete, "/api/price-ranges/"+id, nil), http.StatusOK)
	if got := len(env.upstream.Ranges("c1")); got != 0 {
		t.Errorf("upstream has %d ranges", got)
	}
	expectStatus(t, env.do(t, http.MethodDelete, "/api/price-ranges/"+id, nil), http.StatusBadGateway)
}

func TestDaily(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	req := handlers.DailyRequest{
		StartDate: "2024-04-01",
		EndDate:   "2024-04-03",
		StartTime: "07:00",
		EndTime:   "12:00",
		Price:     "30",
	}
	resp := env.do(t, http.MethodPost, "/api/price-ranges/daily/preview", req)
	expectStatus(t, resp, http.StatusOK)
	if p := decode[handlers.RangesResponse](t, resp); p.Count != 3 {
		t.Errorf("preview count = %d", p.Count)
	}

	inverted := req
	inverted.EndDate = "2024-03-01"
	expectStatus(t, env.do(t, http.MethodPost, "/api/price-ranges/daily", inverted), http.StatusBadRequest)
	if got := len(env.upstream.Ranges("c1")); got != 1 {
		t.Fatalf("inverted plan reached upstream: %d ranges", got)
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/price-ranges/daily", req), http.StatusNoContent)
	if got := len(env.upstream.Ranges("c1")); got != 4 {
		t.Errorf("upstream has %d ranges, want 4", got)
	}
}

func TestDraft(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	resp := env.do(t, http.MethodGet, "/api/price-ranges/draft", nil)
	expectStatus(t, resp, http.StatusOK)
	if d := decode[pricing.RangeDraft](t, resp); d.StartDate != "2024-03-15" || d.EndDate != "2024-03-16" {
		t.Errorf("new draft = %+v", d)
	}

	id := env.upstream.Ranges("c1")[0].ID
	resp = env.do(t, http.MethodGet, "/api/price-ranges/draft?id="+id, nil)
	expectStatus(t, resp, http.StatusOK)
	if d := decode[pricing.RangeDraft](t, resp); d.ID != id || d.StartTime != "08:00" || d.EndTime != "18:00" {
		t.Errorf("existing draft = %+v", d)
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/price-ranges/draft?id=nope", nil), http.StatusNotFound)
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upstream.AddUsers(
		backoffice.User{Name: "Ana", Surname: "Ruiz", UserName: "ana"},
		backoffice.User{Name: "Bob", Surname: "Lee", UserName: "bob"},
		backoffice.User{Name: "Cara", Surname: "Diaz", UserName: "cara"},
	)
	env.login(t)

	resp := env.do(t, http.MethodGet, "/api/users", nil)
	expectStatus(t, resp, http.StatusOK)
	if u := decode[handlers.UsersResponse](t, resp); u.Page != 1 || u.TotalPages != 2 || len(u.Items) != 2 {
		t.Errorf("page 1 = %+v", u)
	}

	resp = env.do(t, http.MethodPost, "/api/users/next", nil)
	expectStatus(t, resp, http.StatusOK)
	if u := decode[handlers.UsersResponse](t, resp); u.Page != 2 || len(u.Items) != 1 {
		t.Errorf("page 2 = %+v", u)
	}

	resp = env.do(t, http.MethodGet, "/api/users?search=lee", nil)
	expectStatus(t, resp, http.StatusOK)
	if u := decode[handlers.UsersResponse](t, resp); u.Page != 1 || u.Search != "lee" || len(u.Items) != 1 {
		t.Errorf("search = %+v", u)
	}
}

func TestExports(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	resp := env.do(t, http.MethodGet, "/api/courses/c1/prices.ics", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != export.ICSContentType {
		t.Errorf("ics content type = %q", ct)
	}
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if !strings.Contains(body.String(), "BEGIN:VEVENT") {
		t.Errorf("ics body has no event:\n%s", body.String())
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/courses/nope/prices.ics", nil), http.StatusNotFound)

	resp = env.do(t, http.MethodGet, "/api/calendar/export.xlsx", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != export.XLSXContentType {
		t.Errorf("xlsx content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "c1-2024-03.xlsx") {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestCSRF(t *testing.T) {
	env := newTestEnv(t, bytes.Repeat([]byte("k"), 32))

	resp := env.do(t, http.MethodPost, "/api/session", handlers.LoginRequest{APIKey: testKey})
	expectStatus(t, resp, http.StatusForbidden)

	resp = env.do(t, http.MethodGet, "/api/health", nil)
	token := resp.Header.Get(middleware.CSRFHeader)
	if token == "" {
		t.Fatal("no CSRF token on GET")
	}

	body, _ := json.Marshal(handlers.LoginRequest{APIKey: testKey})
	req, _ := http.NewRequest(http.MethodPost, env.url+"/api/session", bytes.NewReader(body))
	req.Header.Set(middleware.CSRFHeader, token)
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)
}
