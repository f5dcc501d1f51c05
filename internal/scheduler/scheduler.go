package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/jobs"
	"briefcast/internal/logging"
	"briefcast/internal/services"
	"briefcast/internal/sources"
)

// fireWindow is how long after the configured time a user's daily slot
// remains eligible. The check loop runs once a minute, so a generous window
// absorbs slow ticks without ever firing twice (the per-day claim handles
// that).
const fireWindow = 5 * time.Minute

// Scheduler creates daily generation jobs for users who enabled them. At
// most one job per user per local day; a user with a job already in flight
// is skipped for the day.
type Scheduler struct {
	jobs     *jobs.Store
	sources  *sources.Store
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a scheduler over the job and source stores.
func New(cfg *config.Config, jobStore *jobs.Store, sourceStore *sources.Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.Workflow.SchedulerInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		jobs:     jobStore,
		sources:  sourceStore,
		logger:   logging.WithComponent(logger, "scheduler"),
		interval: interval,
		now:      time.Now,
	}
}

// Start begins the periodic check loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop terminates the check loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CheckAll(ctx); err != nil {
				s.logger.Error("scheduler pass failed", logging.Error(err))
			}
		}
	}
}

// CheckAll runs one scheduling pass over every daily-enabled user and
// returns how many jobs were created. It is also the entry point for the
// external cron trigger.
func (s *Scheduler) CheckAll(ctx context.Context) (int, error) {
	prefs, err := s.sources.ListDailyEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("list daily preferences: %w", err)
	}

	now := s.now().UTC()
	created := 0
	for _, pref := range prefs {
		due, localDate, err := ShouldRunNow(pref, now)
		if err != nil {
			s.logger.Warn("skipping user with invalid schedule",
				logging.String(logging.FieldUserID, pref.UserID),
				logging.Error(err))
			continue
		}
		if !due {
			continue
		}

		claimed, err := s.sources.MarkScheduled(ctx, pref.UserID, localDate)
		if err != nil {
			s.logger.Error("failed to claim daily slot",
				logging.String(logging.FieldUserID, pref.UserID),
				logging.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		job, err := s.jobs.Create(ctx, pref.UserID, now)
		if errors.Is(err, services.ErrJobAlreadyRunning) {
			s.logger.Info("daily generation skipped, job already in flight",
				logging.String(logging.FieldUserID, pref.UserID))
			continue
		}
		if err != nil {
			s.logger.Error("failed to create daily job",
				logging.String(logging.FieldUserID, pref.UserID),
				logging.Error(err))
			continue
		}
		created++
		s.logger.Info("daily job scheduled",
			logging.String(logging.FieldUserID, pref.UserID),
			logging.String(logging.FieldJobID, job.ID))
	}
	return created, nil
}

// ShouldRunNow reports whether a user's daily slot is due at the given
// instant: the user's local wall clock is within the fire window after the
// configured time and that local date has not been claimed yet.
func ShouldRunNow(pref sources.Preference, now time.Time) (bool, string, error) {
	if !pref.DailyEnabled {
		return false, "", nil
	}
	loc, err := time.LoadLocation(pref.Timezone)
	if err != nil {
		return false, "", fmt.Errorf("load timezone %q: %w", pref.Timezone, err)
	}
	target, err := time.Parse("15:04", pref.GenerationTime)
	if err != nil {
		return false, "", fmt.Errorf("parse generation time %q: %w", pref.GenerationTime, err)
	}

	local := now.In(loc)
	fireAt := time.Date(local.Year(), local.Month(), local.Day(),
		target.Hour(), target.Minute(), 0, 0, loc)
	if local.Before(fireAt) || local.Sub(fireAt) >= fireWindow {
		return false, "", nil
	}

	localDate := local.Format("2006-01-02")
	if pref.LastScheduledDate == localDate {
		return false, "", nil
	}
	return true, localDate, nil
}
