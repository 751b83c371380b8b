package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/backoffice/backofficetest"
	"github.com/golfclapp/backoffice/internal/pricing"
)

const testKey = "key"

func fixedNow() time.Time {
	return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
}

func newTestSession(t *testing.T) (*Session, *backofficetest.Server) {
	t.Helper()
	srv := backofficetest.NewServer(testKey)
	t.Cleanup(srv.Close)
	srv.AddCourse(pricing.Course{ID: "c1", Name: "Links"})
	srv.AddCourse(pricing.Course{ID: "c2", Name: "Parkland"})

	client := backoffice.NewClient(srv.Config()).WithAPIKey(testKey)
	return newSession(State{ID: "s1", APIKey: testKey}, client, 2, fixedNow), srv
}

func refresh(t *testing.T, s *Session) RefreshResult {
	t.Helper()
	res, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return res
}

func march(day int) pricing.Date {
	return pricing.Date{Year: 2024, Month: time.March, Day: day}
}

func TestNewSessionDefaults(t *testing.T) {
	s := newSession(State{ID: "x"}, nil, 10, fixedNow)
	st := s.State()
	if st.View != (pricing.ViewState{Year: 2024, Month: 2}) {
		t.Errorf("View = %+v, want March 2024", st.View)
	}
	if st.UsersPage != 1 {
		t.Errorf("UsersPage = %d", st.UsersPage)
	}
}

func TestRefreshSelectsFirstCourse(t *testing.T) {
	s, _ := newTestSession(t)

	if _, err := s.Selected(); !errors.Is(err, ErrNoCourse) {
		t.Fatalf("Selected before refresh err = %v", err)
	}

	res := refresh(t, s)
	if !res.Applied || res.CourseID != "c1" || res.Generation != 1 {
		t.Errorf("result = %+v", res)
	}

	if err := s.SelectCourse("c2"); err != nil {
		t.Fatalf("SelectCourse: %v", err)
	}
	if res := refresh(t, s); res.CourseID != "c2" {
		t.Errorf("selection not kept across refresh: %+v", res)
	}
}

func TestReconcileCourse(t *testing.T) {
	snaps := []pricing.CourseSnapshot{{Course: pricing.Course{ID: "a"}}, {Course: pricing.Course{ID: "b"}}}
	tests := []struct {
		selected string
		want     string
	}{
		{"b", "b"},
		{"gone", "a"},
		{"", "a"},
	}
	for _, tt := range tests {
		if got := reconcileCourse(snaps, tt.selected); got != tt.want {
			t.Errorf("reconcileCourse(%q) = %q, want %q", tt.selected, got, tt.want)
		}
	}
	if got := reconcileCourse(nil, "a"); got != "" {
		t.Errorf("reconcileCourse(nil) = %q", got)
	}
}

func TestSelectCourseResetsView(t *testing.T) {
	s, _ := newTestSession(t)
	refresh(t, s)

	s.NextMonth()
	s.NextMonth()
	if v := s.State().View; v.Month != 4 {
		t.Fatalf("View = %+v", v)
	}
	if err := s.SelectCourse("c2"); err != nil {
		t.Fatalf("SelectCourse: %v", err)
	}
	if v := s.State().View; v != (pricing.ViewState{Year: 2024, Month: 2}) {
		t.Errorf("View after select = %+v", v)
	}
	if err := s.SelectCourse("nope"); !errors.Is(err, ErrUnknownCourse) {
		t.Errorf("err = %v, want ErrUnknownCourse", err)
	}
}

func TestSavePriceRange(t *testing.T) {
	s, srv := newTestSession(t)
	refresh(t, s)

	draft := pricing.RangeDraft{
		Price:     "12.50",
		StartDate: "2024-03-10",
		StartTime: "08:00",
		EndDate:   "2024-03-10",
		EndTime:   "18:00",
	}
	saved, err := s.SavePriceRange(context.Background(), draft)
	if err != nil {
		t.Fatalf("SavePriceRange: %v", err)
	}
	if saved.ID == "" || saved.CourseID != "c1" || saved.Price != 1250 {
		t.Errorf("saved = %+v", saved)
	}
	if got := srv.Ranges("c1"); len(got) != 1 {
		t.Fatalf("server ranges = %+v", got)
	}

	snap, _ := s.Selected()
	if len(snap.PriceRanges) != 1 || snap.PriceRanges[0].ID != saved.ID {
		t.Errorf("snapshot not refreshed: %+v", snap.PriceRanges)
	}
	if s.Generation() != 2 {
		t.Errorf("Generation = %d, want 2", s.Generation())
	}

	mv, err := s.MonthView(time.UTC)
	if err != nil {
		t.Fatalf("MonthView: %v", err)
	}
	// March 2024 has 4 leading blanks.
	if cell := mv.Days[4+9]; cell.Day != 10 || len(cell.Events) != 1 {
		t.Errorf("March 10 = %+v", cell)
	}
}

func TestSaveFailureKeepsState(t *testing.T) {
	s, srv := newTestSession(t)
	srv.AddRange(pricing.PriceRange{
		CourseID:  "c1",
		Price:     500,
		StartDate: pricing.MustTimestamp("2024-03-01T08:00:00Z"),
		EndDate:   pricing.MustTimestamp("2024-03-01T09:00:00Z"),
	})
	refresh(t, s)
	before := s.Snapshots()

	srv.FailNext("/UpdatePriceRange", http.StatusInternalServerError)
	_, err := s.SavePriceRange(context.Background(), pricing.NewRangeDraft(fixedNow()))

	var apiErr *backoffice.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v, want API status error", err)
	}
	after := s.Snapshots()
	if len(after) != len(before) || len(after[0].PriceRanges) != 1 {
		t.Errorf("snapshots changed on failure: %+v", after)
	}
	if s.Generation() != 1 {
		t.Errorf("Generation = %d, want 1", s.Generation())
	}
}

func TestRefreshFailureAfterMutation(t *testing.T) {
	s, srv := newTestSession(t)
	refresh(t, s)
	ctx := context.Background()

	srv.FailNext("/GetPriceRanges", http.StatusBadGateway)
	saved, err := s.SavePriceRange(ctx, pricing.NewRangeDraft(fixedNow()))
	if !errors.Is(err, ErrRefreshAfterMutation) {
		t.Fatalf("SavePriceRange err = %v, want ErrRefreshAfterMutation", err)
	}
	if backoffice.StatusCode(err) != http.StatusBadGateway {
		t.Errorf("refresh cause lost: %v", err)
	}
	if saved.ID == "" || len(srv.Ranges("c1")) != 1 {
		t.Errorf("save did not land upstream: saved=%+v", saved)
	}

	// The failed refresh left the new range out of the local snapshot.
	if snap, _ := s.Selected(); len(snap.PriceRanges) != 0 {
		t.Errorf("snapshot replaced despite failed refresh: %+v", snap.PriceRanges)
	}

	refresh(t, s)
	srv.FailNext("/GetPriceRanges", http.StatusBadGateway)
	ids, err := s.BulkDelete(ctx, march(1), march(31))
	if !errors.Is(err, ErrRefreshAfterMutation) || len(ids) != 1 {
		t.Errorf("BulkDelete = %v, %v; want 1 id and ErrRefreshAfterMutation", ids, err)
	}
	if got := len(srv.Ranges("c1")); got != 0 {
		t.Errorf("upstream still has %d ranges", got)
	}
}

func TestRefreshFailureKeepsSnapshots(t *testing.T) {
	s, srv := newTestSession(t)
	refresh(t, s)

	srv.FailNext("/GetPriceRanges", http.StatusBadGateway)
	if _, err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if len(s.Snapshots()) != 2 {
		t.Errorf("snapshots lost after failed refresh")
	}
	if s.State().CourseID != "c1" {
		t.Errorf("CourseID = %q", s.State().CourseID)
	}
}

func TestCommandsNeedCourse(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	if _, err := s.SavePriceRange(ctx, pricing.NewRangeDraft(fixedNow())); !errors.Is(err, ErrNoCourse) {
		t.Errorf("SavePriceRange err = %v", err)
	}
	if err := s.DeletePriceRange(ctx, "x"); !errors.Is(err, ErrNoCourse) {
		t.Errorf("DeletePriceRange err = %v", err)
	}
	if err := s.CreateDaily(ctx, pricing.DailyPlan{}); !errors.Is(err, ErrNoCourse) {
		t.Errorf("CreateDaily err = %v", err)
	}
	if _, err := s.BulkDelete(ctx, march(1), march(2)); !errors.Is(err, ErrNoCourse) {
		t.Errorf("BulkDelete err = %v", err)
	}
	if _, err := s.MonthView(time.UTC); !errors.Is(err, ErrNoCourse) {
		t.Errorf("MonthView err = %v", err)
	}
}

func TestCreateDailyCoversEveryDay(t *testing.T) {
	s, srv := newTestSession(t)
	refresh(t, s)

	plan := pricing.DailyPlan{
		StartDate: march(1),
		EndDate:   march(3),
		StartTime: pricing.Clock{Hour: 8},
		EndTime:   pricing.Clock{Hour: 10},
		Price:     2000,
	}
	preview, err := s.PreviewDaily(plan)
	if err != nil {
		t.Fatalf("PreviewDaily: %v", err)
	}
	if len(preview) != 3 || preview[0].CourseID != "c1" {
		t.Fatalf("preview = %+v", preview)
	}

	if err := s.CreateDaily(context.Background(), plan); err != nil {
		t.Fatalf("CreateDaily: %v", err)
	}
	if got := len(srv.Ranges("c1")); got != 3 {
		t.Errorf("server has %d ranges, want 3", got)
	}

	snap, _ := s.Selected()
	for day := 1; day <= 3; day++ {
		if got := pricing.RangesOverlappingDay(snap.PriceRanges, 2024, 2, day); len(got) == 0 {
			t.Errorf("March %d has no range", day)
		}
	}
	if got := pricing.RangesOverlappingDay(snap.PriceRanges, 2024, 2, 4); len(got) != 0 {
		t.Errorf("March 4 ranges = %+v", got)
	}
}

func TestCreateDailyRejectsInvertedPlan(t *testing.T) {
	s, srv := newTestSession(t)
	refresh(t, s)

	err := s.CreateDaily(context.Background(), pricing.DailyPlan{StartDate: march(5), EndDate: march(1)})
	if !errors.Is(err, pricing.ErrPlanInverted) {
		t.Errorf("err = %v, want ErrPlanInverted", err)
	}
	for _, call := range srv.Calls() {
		if call == "POST /CreateDailyPriceRanges" {
			t.Error("inverted plan was sent to the API")
		}
	}
}

func TestBulkDelete(t *testing.T) {
	s, _ := newTestSession(t)
	refresh(t, s)
	ctx := context.Background()

	err := s.CreateDaily(ctx, pricing.DailyPlan{
		StartDate: march(1),
		EndDate:   march(3),
		StartTime: pricing.Clock{Hour: 8},
		EndTime:   pricing.Clock{Hour: 10},
		Price:     2000,
	})
	if err != nil {
		t.Fatalf("CreateDaily: %v", err)
	}

	ids, err := s.BulkDelete(ctx, march(2), march(2))
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("deleted %d ranges, want 1", len(ids))
	}
	left, _ := s.PreviewBulkDelete(march(1), march(3))
	if len(left) != 2 {
		t.Errorf("remaining = %d, want 2", len(left))
	}

	if _, err := s.BulkDelete(ctx, march(1), march(31)); err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if left, _ := s.PreviewBulkDelete(march(1), march(31)); len(left) != 0 {
		t.Errorf("preview after bulk delete = %+v, want empty", left)
	}
}

func TestBulkDeleteEmptyWindowSendsNothing(t *testing.T) {
	s, srv := newTestSession(t)
	refresh(t, s)

	ids, err := s.BulkDelete(context.Background(), march(1), march(31))
	if err != nil || len(ids) != 0 {
		t.Fatalf("BulkDelete = %v, %v", ids, err)
	}
	for _, call := range srv.Calls() {
		if call == "DELETE /DeletePriceRanges" {
			t.Error("empty bulk delete reached the API")
		}
	}
}

func TestDeletePriceRange(t *testing.T) {
	s, srv := newTestSession(t)
	r := srv.AddRange(pricing.PriceRange{
		CourseID:  "c1",
		StartDate: pricing.MustTimestamp("2024-03-01T08:00:00Z"),
		EndDate:   pricing.MustTimestamp("2024-03-01T09:00:00Z"),
	})
	refresh(t, s)

	if err := s.DeletePriceRange(context.Background(), r.ID); err != nil {
		t.Fatalf("DeletePriceRange: %v", err)
	}
	if snap, _ := s.Selected(); len(snap.PriceRanges) != 0 {
		t.Errorf("ranges after delete = %+v", snap.PriceRanges)
	}
}

func TestDayDetail(t *testing.T) {
	s, srv := newTestSession(t)
	srv.AddRange(pricing.PriceRange{
		CourseID:  "c1",
		Price:     700,
		StartDate: pricing.MustTimestamp("2024-03-05T08:00:00Z"),
		EndDate:   pricing.MustTimestamp("2024-03-05T09:00:00Z"),
	})
	refresh(t, s)

	d, err := s.DayDetail(5, time.UTC)
	if err != nil {
		t.Fatalf("DayDetail: %v", err)
	}
	if len(d.Items) != 1 || d.Items[0].Label != "€7.00" {
		t.Errorf("items = %+v", d.Items)
	}
	if _, err := s.DayDetail(32, time.UTC); !errors.Is(err, ErrInvalidDay) {
		t.Errorf("err = %v, want ErrInvalidDay", err)
	}
}

func TestUsersPaging(t *testing.T) {
	s, srv := newTestSession(t)
	srv.AddUsers(
		backoffice.User{Name: "Ana", UserName: "ana"},
		backoffice.User{Name: "Bob", UserName: "bob"},
		backoffice.User{Name: "Cara", UserName: "cara"},
	)
	ctx := context.Background()

	page, err := s.LoadUsers(ctx)
	if err != nil {
		t.Fatalf("LoadUsers: %v", err)
	}
	if page.TotalPages != 2 || len(page.Items) != 2 {
		t.Fatalf("page 1 = %+v", page)
	}

	if page, _ = s.NextUsersPage(ctx); page.Items[0].UserName != "cara" {
		t.Errorf("page 2 = %+v", page)
	}
	calls := len(srv.Calls())
	if _, err := s.NextUsersPage(ctx); err != nil {
		t.Fatalf("NextUsersPage: %v", err)
	}
	if n, _ := s.UsersPosition(); n != 2 {
		t.Errorf("page = %d, want to stay on 2", n)
	}
	if len(srv.Calls()) != calls {
		t.Error("NextUsersPage past the end called the API")
	}

	if page, _ = s.PrevUsersPage(ctx); page.Items[0].UserName != "ana" {
		t.Errorf("back to page 1 = %+v", page)
	}

	s.NextUsersPage(ctx)
	page, err = s.SearchUsers(ctx, "bo")
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if n, term := s.UsersPosition(); n != 1 || term != "bo" || len(page.Items) != 1 {
		t.Errorf("search = page %d term %q items %+v", n, term, page.Items)
	}
}

func TestUsersFailureKeepsPage(t *testing.T) {
	s, srv := newTestSession(t)
	srv.AddUsers(backoffice.User{UserName: "a"}, backoffice.User{UserName: "b"}, backoffice.User{UserName: "c"})
	ctx := context.Background()
	s.LoadUsers(ctx)

	srv.FailNext("/Users", http.StatusServiceUnavailable)
	if _, err := s.NextUsersPage(ctx); err == nil {
		t.Fatal("expected error")
	}
	if n, _ := s.UsersPosition(); n != 1 {
		t.Errorf("page = %d, want 1", n)
	}
}

// gatedAPI blocks each snapshot fetch until the test replies.
type gatedAPI struct {
	API
	calls chan chan []pricing.CourseSnapshot
}

func (g *gatedAPI) GetPriceRanges(ctx context.Context) ([]pricing.CourseSnapshot, error) {
	reply := make(chan []pricing.CourseSnapshot)
	g.calls <- reply
	return <-reply, nil
}

func TestStaleRefreshDiscarded(t *testing.T) {
	api := &gatedAPI{calls: make(chan chan []pricing.CourseSnapshot)}
	s := newSession(State{ID: "s"}, api, 10, fixedNow)
	ctx := context.Background()

	older := []pricing.CourseSnapshot{{Course: pricing.Course{ID: "old"}}}
	newer := []pricing.CourseSnapshot{{Course: pricing.Course{ID: "new"}}}

	firstDone := make(chan RefreshResult)
	go func() {
		res, _ := s.Refresh(ctx)
		firstDone <- res
	}()
	firstReply := <-api.calls

	secondDone := make(chan RefreshResult)
	go func() {
		res, _ := s.Refresh(ctx)
		secondDone <- res
	}()
	secondReply := <-api.calls

	secondReply <- newer
	if res := <-secondDone; !res.Applied || res.Generation != 2 {
		t.Fatalf("second = %+v", res)
	}

	firstReply <- older
	if res := <-firstDone; res.Applied {
		t.Errorf("stale fetch applied: %+v", res)
	}

	if got := s.State().CourseID; got != "new" {
		t.Errorf("CourseID = %q, want new", got)
	}
	if s.Generation() != 2 {
		t.Errorf("Generation = %d", s.Generation())
	}
}
