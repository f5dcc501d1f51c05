package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"briefcast/internal/jobs"
	"briefcast/internal/logging"
	"briefcast/internal/notebook"
	"briefcast/internal/services"
	"briefcast/internal/sources"
)

// process runs one job from claim to terminal state. Fetching and
// generating happen in a single worker pass; there is no intermediate
// persistence point to resume from, so any failure is terminal.
func (m *Manager) process(ctx context.Context, job *jobs.Job) error {
	claimed, err := m.jobs.MarkStarted(ctx, job)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		// Someone else took it, or it is no longer scheduled.
		return nil
	}
	logger := m.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldUserID, job.UserID),
	)
	logger.Info("job started", logging.String(logging.FieldStage, "fetching"))

	if err := m.generate(ctx, job, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			// Shutdown mid-job: the startup orphan sweep will fail it.
			return err
		}
		m.failJob(ctx, job, err, logger)
		return nil
	}
	return nil
}

func (m *Manager) generate(ctx context.Context, job *jobs.Job, logger *slog.Logger) error {
	// Fetch phase.
	snap, err := m.sources.Snapshot(ctx, job.UserID)
	if err != nil {
		return services.Wrap(services.ErrSourceCollection, "workflow", "fetch", "load source configuration", err)
	}
	result, err := sources.CollectAll(ctx, logger, snap, m.collectors)
	if err != nil {
		return err
	}
	used := jobs.SourcesUsed{
		SubstackPosts: result.SourcesOK[sources.KindSubstack],
		RSSFeeds:      result.SourcesOK[sources.KindRSS],
		NewsTopics:    result.SourcesOK[sources.KindTopic],
		TotalItems:    result.TotalItems(),
	}
	if err := job.SetSourcesUsed(used); err != nil {
		return fmt.Errorf("encode sources used: %w", err)
	}

	// The session must exist before any replay work starts.
	session, err := m.credentials.Get(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotConnected) {
			return services.Wrap(services.ErrNotConnected, "workflow", "generate",
				"connect NotebookLM before generating", nil)
		}
		return err
	}

	job.Status = jobs.StatusGenerating
	if err := m.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persist generating transition: %w", err)
	}
	logger.Info("content collected",
		logging.String(logging.FieldStage, "generating"),
		logging.Int("total_items", used.TotalItems))

	// Replay phase, serialized per user so concurrent jobs can never drive
	// the same stored session.
	lock := m.userLock(job.UserID)
	lock.Lock()
	defer lock.Unlock()

	title := notebook.BuildTitle(topicNames(snap), time.Now().UTC())
	notebookID, err := m.client.CreateNotebook(ctx, session, title, result.Items)
	if err != nil {
		return err
	}
	job.NotebookID = notebookID
	if err := m.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persist notebook id: %w", err)
	}
	logger.Info("notebook created", logging.String("notebook_id", notebookID))

	if err := m.client.GenerateAudio(ctx, session, notebookID); err != nil {
		return err
	}

	job.SetComplete()
	if err := m.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}
	logger.Info("job complete", logging.String("notebook_id", notebookID))

	if err := m.notifier.NotifyJobCompleted(ctx, job.UserID, notebookID, used.TotalItems); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}

// failJob records a terminal failure. Failed jobs are never retried; the
// user starts a fresh job instead.
func (m *Manager) failJob(ctx context.Context, job *jobs.Job, cause error, logger *slog.Logger) {
	message := services.Message(cause)
	job.SetFailed(message)
	if err := m.jobs.Update(ctx, job); err != nil {
		logger.Error("failed to persist job failure",
			logging.Error(err),
			logging.String("cause", message))
		return
	}
	logger.Warn("job failed", logging.String("reason", message))

	if err := m.notifier.NotifyJobFailed(ctx, job.UserID, message); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
}

func topicNames(snap sources.Snapshot) []string {
	names := make([]string, 0, len(snap.Topics))
	for _, topic := range snap.Topics {
		names = append(names, topic.Topic)
	}
	return names
}
