package session

import (
	"context"
	"fmt"

	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/pricing"
)

// SavePriceRange creates or updates a range of the selected course from a
// form draft, then refreshes. The saved range is returned, also when only
// the refresh failed.
func (s *Session) SavePriceRange(ctx context.Context, draft pricing.RangeDraft) (pricing.PriceRange, error) {
	courseID, err := s.courseID()
	if err != nil {
		return pricing.PriceRange{}, err
	}

	r, err := draft.PriceRange(courseID)
	if err != nil {
		return pricing.PriceRange{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	saved, err := s.api.UpdatePriceRange(ctx, r)
	if err != nil {
		return pricing.PriceRange{}, fmt.Errorf("saving price range: %w", err)
	}
	return saved, s.refreshAfterMutation(ctx)
}

// DeletePriceRange removes one range, then refreshes.
func (s *Session) DeletePriceRange(ctx context.Context, id string) error {
	if _, err := s.courseID(); err != nil {
		return err
	}
	if err := s.api.DeletePriceRange(ctx, id); err != nil {
		return fmt.Errorf("deleting price range %s: %w", id, err)
	}
	return s.refreshAfterMutation(ctx)
}

// PreviewDaily expands a daily plan for the selected course without
// creating anything.
func (s *Session) PreviewDaily(plan pricing.DailyPlan) ([]pricing.PriceRange, error) {
	courseID, err := s.courseID()
	if err != nil {
		return nil, err
	}
	plan.CourseID = courseID
	return pricing.ExpandDaily(plan)
}

// CreateDaily creates a daily recurring range for the selected course,
// then refreshes.
func (s *Session) CreateDaily(ctx context.Context, plan pricing.DailyPlan) error {
	courseID, err := s.courseID()
	if err != nil {
		return err
	}
	plan.CourseID = courseID
	if err := plan.Validate(); err != nil {
		return err
	}

	if err := s.api.CreateDailyPriceRanges(ctx, plan); err != nil {
		return fmt.Errorf("creating daily price ranges: %w", err)
	}
	return s.refreshAfterMutation(ctx)
}

// PreviewBulkDelete returns the selected course's ranges that overlap the
// window from..to, whole days inclusive.
func (s *Session) PreviewBulkDelete(from, to pricing.Date) ([]pricing.PriceRange, error) {
	snap, err := s.Selected()
	if err != nil {
		return nil, err
	}
	return pricing.RangesOverlappingWindow(snap.PriceRanges, from, to), nil
}

// BulkDelete removes every range PreviewBulkDelete would return and
// refreshes. The deleted ids are returned; nothing is sent when the window
// matches no range.
func (s *Session) BulkDelete(ctx context.Context, from, to pricing.Date) ([]string, error) {
	ranges, err := s.PreviewBulkDelete(from, to)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return []string{}, nil
	}

	ids := pricing.IDs(ranges)
	if err := s.api.DeletePriceRanges(ctx, ids); err != nil {
		return nil, fmt.Errorf("deleting %d price ranges: %w", len(ids), err)
	}
	return ids, s.refreshAfterMutation(ctx)
}

// refreshAfterMutation re-fetches after a successful mutation. A failure
// wraps ErrRefreshAfterMutation so callers can tell the change landed.
func (s *Session) refreshAfterMutation(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshAfterMutation, err)
	}
	return nil
}

// Users returns the user page last loaded.
func (s *Session) Users() backoffice.UserPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users
}

// LoadUsers fetches the current user page.
func (s *Session) LoadUsers(ctx context.Context) (backoffice.UserPage, error) {
	s.mu.Lock()
	page, search := s.state.UsersPage, s.state.UsersSearch
	s.mu.Unlock()
	return s.loadUsers(ctx, page, search)
}

// NextUsersPage moves to the next page if there is one.
func (s *Session) NextUsersPage(ctx context.Context) (backoffice.UserPage, error) {
	s.mu.Lock()
	page, search := s.state.UsersPage, s.state.UsersSearch
	total := s.users.TotalPages
	s.mu.Unlock()

	if page >= total {
		return s.Users(), nil
	}
	return s.loadUsers(ctx, page+1, search)
}

// PrevUsersPage moves to the previous page if there is one.
func (s *Session) PrevUsersPage(ctx context.Context) (backoffice.UserPage, error) {
	s.mu.Lock()
	page, search := s.state.UsersPage, s.state.UsersSearch
	s.mu.Unlock()

	if page <= 1 {
		return s.Users(), nil
	}
	return s.loadUsers(ctx, page-1, search)
}

// SearchUsers filters the user list by term, starting at page 1.
func (s *Session) SearchUsers(ctx context.Context, term string) (backoffice.UserPage, error) {
	return s.loadUsers(ctx, 1, term)
}

// UsersPosition returns the current page number and search term.
func (s *Session) UsersPosition() (page int, search string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UsersPage, s.state.UsersSearch
}

func (s *Session) loadUsers(ctx context.Context, page int, search string) (backoffice.UserPage, error) {
	result, err := s.api.Users(ctx, backoffice.UserQuery{
		PageNumber: page,
		PageSize:   s.pageSize,
		SearchTerm: search,
	})
	if err != nil {
		return backoffice.UserPage{}, fmt.Errorf("loading users: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UsersPage = page
	s.state.UsersSearch = search
	s.users = result
	return result, nil
}
