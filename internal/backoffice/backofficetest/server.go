// Package backofficetest provides an in-memory BackOffice API for tests.
package backofficetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/pricing"
)

// Server is a fake BackOffice API backed by memory.
type Server struct {
	*httptest.Server

	apiKey string

	mu      sync.Mutex
	courses []pricing.Course
	ranges  []pricing.PriceRange
	users   []backoffice.User
	fail    map[string]int
	calls   []string
}

// NewServer starts a fake API that accepts only apiKey.
func NewServer(apiKey string) *Server {
	s := &Server{
		apiKey: apiKey,
		fail:   make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /GetPriceRanges", s.getPriceRanges)
	mux.HandleFunc("POST /UpdatePriceRange", s.updatePriceRange)
	mux.HandleFunc("DELETE /DeletePriceRange", s.deletePriceRange)
	mux.HandleFunc("DELETE /DeletePriceRanges", s.deletePriceRanges)
	mux.HandleFunc("POST /CreateDailyPriceRanges", s.createDaily)
	mux.HandleFunc("GET /Users", s.listUsers)

	s.Server = httptest.NewServer(s.guard(mux))
	return s
}

// Config returns a client config pointing at the fake.
func (s *Server) Config() backoffice.Config {
	return backoffice.Config{BaseURL: s.URL}
}

// AddCourse registers a course.
func (s *Server) AddCourse(c pricing.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = append(s.courses, c)
}

// AddRange stores a range, assigning an id if it has none.
func (s *Server) AddRange(r pricing.PriceRange) pricing.PriceRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.ranges = append(s.ranges, r)
	return r
}

// AddUsers appends to the user list.
func (s *Server) AddUsers(users ...backoffice.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, users...)
}

// Ranges returns the stored ranges of a course.
func (s *Server) Ranges(courseID string) []pricing.PriceRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.courseRanges(courseID)
}

// FailNext makes the next call to the endpoint (e.g. "/GetPriceRanges")
// answer with status.
func (s *Server) FailNext(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[path] = status
}

// Calls returns "METHOD /path" for every request received, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		status, failing := s.fail[r.URL.Path]
		delete(s.fail, r.URL.Path)
		s.mu.Unlock()

		if r.Header.Get(backoffice.APIKeyHeader) != s.apiKey {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		if failing {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) courseRanges(courseID string) []pricing.PriceRange {
	out := []pricing.PriceRange{}
	for _, r := range s.ranges {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) getPriceRanges(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snapshots := make([]pricing.CourseSnapshot, 0, len(s.courses))
	for _, c := range s.courses {
		snapshots = append(snapshots, pricing.CourseSnapshot{Course: c, PriceRanges: s.courseRanges(c.ID)})
	}
	s.mu.Unlock()

	writeJSON(w, snapshots)
}

func (s *Server) updatePriceRange(w http.ResponseWriter, r *http.Request) {
	var in pricing.PriceRange
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ranges {
		if s.ranges[i].ID == in.ID {
			s.ranges[i] = in
			return
		}
	}
	s.ranges = append(s.ranges, in)
}

func (s *Server) deletePriceRange(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.ranges)
	s.ranges = slices.DeleteFunc(s.ranges, func(pr pricing.PriceRange) bool { return pr.ID == id })
	if len(s.ranges) == n {
		http.Error(w, "price range not found", http.StatusNotFound)
	}
}

func (s *Server) deletePriceRanges(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = slices.DeleteFunc(s.ranges, func(pr pricing.PriceRange) bool { return slices.Contains(ids, pr.ID) })
}

func (s *Server) createDaily(w http.ResponseWriter, r *http.Request) {
	var req backoffice.DailyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	plan, err := planFromRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ranges, err := pricing.ExpandDaily(plan)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pr := range ranges {
		pr.ID = uuid.NewString()
		s.ranges = append(s.ranges, pr)
	}
}

func planFromRequest(req backoffice.DailyRequest) (pricing.DailyPlan, error) {
	start, err := pricing.ParseDate(pricing.ParseTimestamp(req.StartDate).DateOnly())
	if err != nil {
		return pricing.DailyPlan{}, err
	}
	end, err := pricing.ParseDate(pricing.ParseTimestamp(req.EndDate).DateOnly())
	if err != nil {
		return pricing.DailyPlan{}, err
	}
	startTime, err := pricing.ParseClock(req.StartTime)
	if err != nil {
		return pricing.DailyPlan{}, err
	}
	endTime, err := pricing.ParseClock(req.EndTime)
	if err != nil {
		return pricing.DailyPlan{}, err
	}
	return pricing.DailyPlan{
		CourseID:  req.CourseID,
		StartDate: start,
		EndDate:   end,
		StartTime: startTime,
		EndTime:   endTime,
		Price:     req.Price,
	}, nil
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("pageNumber"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	term := strings.ToLower(q.Get("searchTerm"))

	s.mu.Lock()
	matched := []backoffice.User{}
	for _, u := range s.users {
		if term == "" || matchesUser(u, term) {
			matched = append(matched, u)
		}
	}
	s.mu.Unlock()

	totalPages := max(1, (len(matched)+size-1)/size)
	from := min((page-1)*size, len(matched))
	to := min(from+size, len(matched))

	writeJSON(w, backoffice.UserPage{Items: matched[from:to], TotalPages: totalPages})
}

func matchesUser(u backoffice.User, term string) bool {
	for _, field := range []string{u.Name, u.Surname, u.UserName, u.Email} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
