package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/survey-admin/internal/models"
	"github.com/terra-clan/survey-admin/internal/storage"
	"github.com/terra-clan/survey-admin/pkg/client"
)

// Deleter removes remote records left behind by a failed publication
type Deleter interface {
	DeleteTemplate(ctx context.Context, templateID string) error
	DeleteQuestion(ctx context.Context, questionID string) error
}

// batchSize bounds the orphans handled per cycle
const batchSize = 100

// Cleaner periodically retries deletion of orphaned backend records
type Cleaner struct {
	journal  storage.Journal
	backend  Deleter
	interval time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(journal storage.Journal, backend Deleter, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		journal:  journal,
		backend:  backend,
		interval: interval,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("orphan sweeper started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("orphan sweeper stopped")
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep makes one pass over pending orphans and returns how many were resolved
func (c *Cleaner) Sweep(ctx context.Context) int {
	slog.Debug("running orphan sweep")

	orphans, err := c.journal.ListPendingOrphans(ctx, batchSize)
	if err != nil {
		slog.Error("failed to list orphans", "error", err)
		return 0
	}

	if len(orphans) == 0 {
		slog.Debug("no orphans pending")
		return 0
	}

	slog.Info("found pending orphans", "count", len(orphans))

	resolved := 0
	for _, o := range orphans {
		if ctx.Err() != nil {
			break
		}

		if err := c.delete(ctx, o); err != nil {
			slog.Warn("failed to delete orphan",
				"error", err,
				"id", o.ID,
				"kind", o.Kind,
				"remote_id", o.RemoteID,
				"attempts", o.Attempts+1,
			)
			if err := c.journal.MarkOrphanAttempt(ctx, o.ID, err.Error()); err != nil {
				slog.Error("failed to record orphan attempt", "error", err, "id", o.ID)
			}
			continue
		}

		if err := c.journal.ResolveOrphan(ctx, o.ID); err != nil {
			slog.Error("failed to resolve orphan", "error", err, "id", o.ID)
			continue
		}

		slog.Info("orphan deleted", "id", o.ID, "kind", o.Kind, "remote_id", o.RemoteID)
		resolved++
	}

	return resolved
}

// delete removes the orphan remotely. A 404 means an earlier delete already
// went through, so the orphan counts as resolved.
func (c *Cleaner) delete(ctx context.Context, o *models.Orphan) error {
	var err error
	if o.Kind == models.OrphanTemplate {
		err = c.backend.DeleteTemplate(ctx, o.RemoteID)
	} else {
		err = c.backend.DeleteQuestion(ctx, o.RemoteID)
	}
	if client.IsNotFound(err) {
		slog.Info("orphan already gone", "id", o.ID, "kind", o.Kind, "remote_id", o.RemoteID)
		return nil
	}
	return err
}
