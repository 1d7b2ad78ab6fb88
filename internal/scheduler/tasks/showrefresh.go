package tasks

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/showrunner/showrunner/internal/scheduler"
	syncengine "github.com/showrunner/showrunner/internal/sync"
)

// ShowRefreshTask re-fetches every mirrored show the remote catalog
// reports as changed since the last daily window.
type ShowRefreshTask struct {
	engine *syncengine.Engine
	logger zerolog.Logger
}

// NewShowRefreshTask creates a new show refresh task.
func NewShowRefreshTask(engine *syncengine.Engine, logger zerolog.Logger) *ShowRefreshTask {
	return &ShowRefreshTask{
		engine: engine,
		logger: logger.With().Str("task", "show-refresh").Logger(),
	}
}

// Run executes the changed-shows sweep.
func (t *ShowRefreshTask) Run(ctx context.Context) error {
	t.logger.Info().Msg("Starting scheduled show refresh")
	return t.engine.RefreshChangedShows(ctx)
}

// RegisterShowRefreshTask registers the show refresh task with the scheduler.
func RegisterShowRefreshTask(sched *scheduler.Scheduler, engine *syncengine.Engine, cron string, runOnStart bool, logger zerolog.Logger) error {
	task := NewShowRefreshTask(engine, logger)

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "refresh-changed-shows",
		Name:        "Show Refresh",
		Description: "Re-fetches mirrored shows the remote catalog reports as changed",
		Cron:        cron,
		RunOnStart:  runOnStart,
		Func:        task.Run,
	})
}
