package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"briefcast/internal/config"
	"briefcast/internal/credentials"
	"briefcast/internal/jobs"
	"briefcast/internal/logging"
	"briefcast/internal/notebook"
	"briefcast/internal/notifications"
	"briefcast/internal/scheduler"
	"briefcast/internal/server"
	"briefcast/internal/sources"
	"briefcast/internal/workflow"
)

// Daemon owns the backend service lifecycle and enforces single-instance
// execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	jobs        *jobs.Store
	credentials *credentials.Store
	sources     *sources.Store
	workflow    *workflow.Manager
	scheduler   *scheduler.Scheduler
	api         *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	APIAddr      string
	Jobs         jobs.HealthSummary
	LockFilePath string
}

// New opens the stores and assembles the production service graph.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	jobStore, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	credStore, err := credentials.Open(cfg)
	if err != nil {
		jobStore.Close()
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	sourceStore, err := sources.Open(cfg)
	if err != nil {
		jobStore.Close()
		credStore.Close()
		return nil, fmt.Errorf("open source store: %w", err)
	}

	notifier := notifications.NewService(cfg)
	client := notebook.NewReplayer(cfg.Notebook, logger)
	manager := workflow.NewManager(cfg, jobStore, credStore, sourceStore, client, logger)
	sched := scheduler.New(cfg, jobStore, sourceStore, logger)
	apiServer := server.New(cfg, jobStore, credStore, sched, notifier, nil, logger)

	return newWithServices(cfg, logger, jobStore, credStore, sourceStore, manager, sched, apiServer), nil
}

func newWithServices(
	cfg *config.Config,
	logger *slog.Logger,
	jobStore *jobs.Store,
	credStore *credentials.Store,
	sourceStore *sources.Store,
	manager *workflow.Manager,
	sched *scheduler.Scheduler,
	apiServer *server.Server,
) *Daemon {
	lockPath := filepath.Join(cfg.Paths.DataDir, "briefcastd.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logging.WithComponent(logger, "daemon"),
		jobs:        jobStore,
		credentials: credStore,
		sources:     sourceStore,
		workflow:    manager,
		scheduler:   sched,
		api:         apiServer,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}
}

// Start acquires the instance lock, fails over orphaned jobs from a previous
// run, and launches the workflow, scheduler, and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another briefcast daemon instance is already running")
	}

	orphaned, err := d.jobs.FailOrphans(ctx, jobs.DaemonStopReason)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("fail orphaned jobs: %w", err)
	}
	if orphaned > 0 {
		d.logger.Warn("failed jobs orphaned by previous run", logging.Int("count", int(orphaned)))
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.scheduler.Start(runCtx); err != nil {
		d.workflow.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.api.Start(runCtx); err != nil {
		d.scheduler.Stop()
		d.workflow.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("briefcast daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop drains the services in reverse start order and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.Stop()
	d.scheduler.Stop()
	d.workflow.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("briefcast daemon stopped")
}

// Close stops the daemon and releases store handles.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	for _, closer := range []interface{ Close() error }{d.jobs, d.credentials, d.sources} {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Status reports runtime state and aggregate job counts.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	health, err := d.jobs.Health(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("job health: %w", err)
	}
	return Status{
		Running:      d.running.Load(),
		APIAddr:      d.api.Addr(),
		Jobs:         health,
		LockFilePath: d.lockPath,
	}, nil
}
