// Package session holds the per-staff view state of the back-office panel:
// the API key, the course snapshots last fetched, the selected course and
// month, and the user list page.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/pricing"
)

var (
	// ErrNoCourse is returned by commands that need a selected course.
	ErrNoCourse = errors.New("no course selected")
	// ErrNotFound is returned when a session id is unknown.
	ErrNotFound = errors.New("session not found")
	// ErrUnknownCourse is returned when selecting a course not in the snapshot.
	ErrUnknownCourse = errors.New("unknown course")
	// ErrEmptyKey is returned when logging in without an API key.
	ErrEmptyKey = errors.New("API key is required")
	// ErrInvalidRange is returned when a form draft cannot be converted.
	ErrInvalidRange = errors.New("invalid price range")
	// ErrInvalidDay is returned for a day outside the viewed month.
	ErrInvalidDay = errors.New("day outside the viewed month")
	// ErrRefreshAfterMutation is returned when a mutation was applied
	// upstream but the snapshot could not be re-fetched afterwards.
	ErrRefreshAfterMutation = errors.New("change applied but refresh failed")
)

// API is the part of the BackOffice API a session drives.
type API interface {
	GetPriceRanges(ctx context.Context) ([]pricing.CourseSnapshot, error)
	UpdatePriceRange(ctx context.Context, r pricing.PriceRange) (pricing.PriceRange, error)
	DeletePriceRange(ctx context.Context, id string) error
	DeletePriceRanges(ctx context.Context, ids []string) error
	CreateDailyPriceRanges(ctx context.Context, p pricing.DailyPlan) error
	Users(ctx context.Context, q backoffice.UserQuery) (backoffice.UserPage, error)
}

// State is the durable part of a session.
type State struct {
	ID          string            `json:"id"`
	APIKey      string            `json:"apiKey"`
	CourseID    string            `json:"courseId"`
	View        pricing.ViewState `json:"view"`
	UsersPage   int               `json:"usersPage"`
	UsersSearch string            `json:"usersSearch"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// RefreshResult describes the outcome of a snapshot fetch.
type RefreshResult struct {
	Generation uint64
	// Applied is false when a newer fetch finished first and this result
	// was dropped.
	Applied    bool
	CourseID   string
	RangeCount int
}

// Session is one logged-in staff member's panel state. It is safe for
// concurrent use; API calls are made without holding the lock.
type Session struct {
	api      API
	pageSize int
	now      func() time.Time

	mu        sync.Mutex
	state     State
	snapshots []pricing.CourseSnapshot
	issued    uint64
	applied   uint64
	users     backoffice.UserPage
	lastSeen  time.Time
}

func newSession(state State, api API, pageSize int, now func() time.Time) *Session {
	if state.UsersPage < 1 {
		state.UsersPage = 1
	}
	if state.View.Year == 0 || !state.View.Valid() {
		state.View = pricing.CurrentView(now())
	}
	return &Session{
		api:      api,
		pageSize: pageSize,
		now:      now,
		state:    state,
		users:    backoffice.UserPage{Items: []backoffice.User{}},
		lastSeen: now(),
	}
}

// LastSeen returns when the session was last used by a request.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

// ID returns the session id.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// State returns a copy of the durable state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshots returns the course snapshots last applied. The slice must not
// be modified.
func (s *Session) Snapshots() []pricing.CourseSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots
}

// Generation returns the generation of the snapshot currently applied.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Selected returns the snapshot of the selected course.
func (s *Session) Selected() (pricing.CourseSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Session) selectedLocked() (pricing.CourseSnapshot, error) {
	if s.state.CourseID == "" {
		return pricing.CourseSnapshot{}, ErrNoCourse
	}
	for _, snap := range s.snapshots {
		if snap.Course.ID == s.state.CourseID {
			return snap, nil
		}
	}
	return pricing.CourseSnapshot{}, ErrNoCourse
}

// Refresh fetches all course snapshots and replaces the current set
// wholesale. A fetch that completes after a newer one has been applied is
// discarded. On failure the previous snapshots are kept.
func (s *Session) Refresh(ctx context.Context) (RefreshResult, error) {
	s.mu.Lock()
	s.issued++
	gen := s.issued
	s.mu.Unlock()

	snapshots, err := s.api.GetPriceRanges(ctx)
	if err != nil {
		return RefreshResult{Generation: gen}, fmt.Errorf("refreshing snapshots: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen < s.applied {
		return RefreshResult{Generation: gen, CourseID: s.state.CourseID}, nil
	}
	s.applied = gen
	s.snapshots = snapshots
	s.state.CourseID = reconcileCourse(snapshots, s.state.CourseID)

	res := RefreshResult{Generation: gen, Applied: true, CourseID: s.state.CourseID}
	if snap, err := s.selectedLocked(); err == nil {
		res.RangeCount = len(snap.PriceRanges)
	}
	return res, nil
}

// reconcileCourse keeps the selected course if it is still present and
// falls back to the first course otherwise.
func reconcileCourse(snapshots []pricing.CourseSnapshot, selected string) string {
	for _, snap := range snapshots {
		if snap.Course.ID == selected {
			return selected
		}
	}
	if len(snapshots) > 0 {
		return snapshots[0].Course.ID
	}
	return ""
}

// SelectCourse makes id the selected course and resets the view to the
// current month.
func (s *Session) SelectCourse(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range s.snapshots {
		if snap.Course.ID == id {
			s.state.CourseID = id
			s.state.View = pricing.CurrentView(s.now())
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCourse, id)
}

// NextMonth advances the view one month.
func (s *Session) NextMonth() pricing.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.View = s.state.View.Next()
	return s.state.View
}

// PrevMonth moves the view back one month.
func (s *Session) PrevMonth() pricing.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.View = s.state.View.Prev()
	return s.state.View
}

// MonthView renders the selected course for the current month.
func (s *Session) MonthView(loc *time.Location) (pricing.MonthView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.selectedLocked()
	if err != nil {
		return pricing.MonthView{}, err
	}
	return pricing.BuildMonthView(snap, s.state.View, loc), nil
}

// DayDetail lists the selected course's ranges on a day of the viewed month.
func (s *Session) DayDetail(day int, loc *time.Location) (pricing.DayDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.selectedLocked()
	if err != nil {
		return pricing.DayDetail{}, err
	}
	v := s.state.View
	if day < 1 || day > pricing.DaysInMonth(v.Year, v.Month) {
		return pricing.DayDetail{}, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	return pricing.BuildDayDetail(snap, v.Year, v.Month, day, loc), nil
}

func (s *Session) courseID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CourseID == "" {
		return "", ErrNoCourse
	}
	return s.state.CourseID, nil
}
