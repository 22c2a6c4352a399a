// Package autosave periodically flushes dirty editing sessions to persistence.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule flushes every thirty seconds.
const DefaultSchedule = "@every 30s"

var ErrAlreadyStarted = errors.New("autosave already started")

// Flusher stores pending changes and reports how many documents were written.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// Autosave runs a Flusher on a cron schedule.
type Autosave struct {
	flusher  Flusher
	schedule string
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// New validates schedule and returns a stopped Autosave. An empty schedule uses DefaultSchedule.
func New(flusher Flusher, schedule string, logger *slog.Logger) (*Autosave, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid autosave schedule %q: %w", schedule, err)
	}

	return &Autosave{
		flusher:  flusher,
		schedule: schedule,
		logger:   logger.With("module", "autosave", "schedule", schedule),
	}, nil
}

// Start schedules the flush job.
func (a *Autosave) Start(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cron != nil {
		return ErrAlreadyStarted
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	id, err := c.AddFunc(a.schedule, a.run)
	if err != nil {
		return fmt.Errorf("failed to add autosave job: %w", err)
	}

	a.logger.Info("Starting autosave", "job_id", id)
	c.Start()
	a.cron = c

	return nil
}

// Stop waits for a running flush to finish, then flushes one last time.
func (a *Autosave) Stop(ctx context.Context) error {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()

	if c != nil {
		a.logger.Info("Stopping autosave")

		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err := a.Flush(ctx)

	return err
}

// Flush runs the flusher once.
func (a *Autosave) Flush(ctx context.Context) (int, error) {
	count, err := a.flusher.Flush(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "Autosave failed", "saved", count, "error", err)

		return count, err
	}

	if count > 0 {
		a.logger.DebugContext(ctx, "Autosave completed", "saved", count)
	}

	return count, nil
}

func (a *Autosave) run() {
	_, _ = a.Flush(context.Background())
}
