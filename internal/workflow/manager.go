package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/credentials"
	"briefcast/internal/jobs"
	"briefcast/internal/logging"
	"briefcast/internal/notebook"
	"briefcast/internal/notifications"
	"briefcast/internal/sources"
)

// Manager polls for scheduled jobs and runs them to a terminal state. One
// job is processed at a time; replay against the notebook service is
// additionally serialized per user so two jobs can never race the same
// stored session.
type Manager struct {
	cfg         *config.Config
	jobs        *jobs.Store
	credentials *credentials.Store
	sources     *sources.Store
	collectors  []sources.Collector
	client      notebook.Client
	notifier    notifications.Service
	logger      *slog.Logger

	pollInterval  time.Duration
	errorInterval time.Duration

	userLocks sync.Map // userID -> *sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs the production manager.
func NewManager(
	cfg *config.Config,
	jobStore *jobs.Store,
	credentialStore *credentials.Store,
	sourceStore *sources.Store,
	client notebook.Client,
	logger *slog.Logger,
) *Manager {
	return NewManagerWithOptions(cfg, jobStore, credentialStore, sourceStore,
		sources.DefaultCollectors(cfg, logger), client, notifications.NewService(cfg), logger)
}

// NewManagerWithOptions constructs a manager with explicit collaborators,
// used by tests to substitute collectors, client, and notifier.
func NewManagerWithOptions(
	cfg *config.Config,
	jobStore *jobs.Store,
	credentialStore *credentials.Store,
	sourceStore *sources.Store,
	collectors []sources.Collector,
	client notebook.Client,
	notifier notifications.Service,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	pollInterval := time.Duration(cfg.Workflow.JobPollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	errorInterval := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if errorInterval <= 0 {
		errorInterval = pollInterval
	}
	return &Manager{
		cfg:           cfg,
		jobs:          jobStore,
		credentials:   credentialStore,
		sources:       sourceStore,
		collectors:    collectors,
		client:        client,
		notifier:      notifier,
		logger:        logging.WithComponent(logger, "workflow"),
		pollInterval:  pollInterval,
		errorInterval: errorInterval,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the in-flight job
// pass to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the poll loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.jobs.NextScheduled(ctx)
		if err != nil {
			m.logger.Error("poll for scheduled jobs failed", logging.Error(err))
			m.sleep(ctx, m.errorInterval)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		if err := m.process(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.logger.Error("job processing error",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err))
			m.sleep(ctx, m.errorInterval)
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// userLock returns the per-user mutex used to serialize session replay.
func (m *Manager) userLock(userID string) *sync.Mutex {
	lock, _ := m.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
