// Package refresh periodically re-fetches the snapshot of every live
// session so open panels pick up changes made elsewhere.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/golfclapp/backoffice/internal/session"
	"github.com/golfclapp/backoffice/internal/websocket"
)

// DefaultSpec is the refresh schedule used when none is configured.
const DefaultSpec = "@every 5m"

// Sessions lists the sessions to refresh.
type Sessions interface {
	Live() []*session.Session
	// EvictIdle drops sessions nobody has used recently.
	EvictIdle(ctx context.Context) int
}

// Options configures a Scheduler.
type Options struct {
	// Spec is a cron spec with an optional seconds field, or an @every
	// descriptor.
	Spec string
	// Timeout bounds each session's refresh.
	Timeout time.Duration
	// Workers is the number of sessions refreshed concurrently.
	Workers int
}

// Scheduler manages the periodic refresh job.
type Scheduler struct {
	cron        *cron.Cron
	sessions    Sessions
	broadcaster *websocket.EventBroadcaster
	spec        string
	timeout     time.Duration
	workers     int
	logger      *slog.Logger

	mu      sync.Mutex
	entry   cron.EntryID
	lastRun time.Time
}

// NewScheduler creates a refresh scheduler. hub may be nil.
func NewScheduler(sessions Sessions, hub *websocket.Hub, opts Options, logger *slog.Logger) *Scheduler {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		sessions:    sessions,
		broadcaster: broadcaster,
		spec:        opts.Spec,
		timeout:     opts.Timeout,
		workers:     opts.Workers,
		logger:      logger,
	}
}

// Start schedules the refresh job and starts the cron runner.
func (s *Scheduler) Start() error {
	entry, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("scheduling refresh %q: %w", s.spec, err)
	}

	s.mu.Lock()
	s.entry = entry
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("refresh scheduler started", "spec", s.spec)
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("refresh scheduler stopped")
}

// NextRun returns when the job runs next, or the zero time if it is not
// scheduled.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// LastRun returns when RunOnce last completed.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// RunOnce evicts idle sessions, refreshes every remaining live session and
// reports how many refreshes failed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	if n := s.sessions.EvictIdle(ctx); n > 0 {
		s.logger.Info("idle sessions evicted", "count", n)
	}
	live := s.sessions.Live()
	jobs := make(chan *session.Session)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for range min(s.workers, len(live)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sess := range jobs {
				if err := s.refreshSession(ctx, sess); err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}
	for _, sess := range live {
		jobs <- sess
	}
	close(jobs)
	wg.Wait()

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	s.logger.Debug("refresh completed", "sessions", len(live), "failed", failed)
	return failed
}

func (s *Scheduler) refreshSession(ctx context.Context, sess *session.Session) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := sess.Refresh(ctx)
	if err != nil {
		s.logger.Warn("scheduled refresh failed", "session", sess.ID(), "error", err)
		if s.broadcaster != nil {
			s.broadcaster.Notify(sess.ID(), "error", "Refresh failed", err.Error())
		}
		return err
	}

	if res.Applied && s.broadcaster != nil {
		s.broadcaster.SnapshotReplaced(sess.ID(), res.CourseID, res.RangeCount, res.Generation)
	}
	return nil
}
