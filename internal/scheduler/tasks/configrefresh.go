package tasks

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/showrunner/showrunner/internal/scheduler"
	syncengine "github.com/showrunner/showrunner/internal/sync"
)

// ConfigRefreshTask replaces the cached remote catalog configuration
// (image CDN base URLs and size lists) with a fresh copy.
type ConfigRefreshTask struct {
	engine *syncengine.Engine
	logger zerolog.Logger
}

// NewConfigRefreshTask creates a new configuration refresh task.
func NewConfigRefreshTask(engine *syncengine.Engine, logger zerolog.Logger) *ConfigRefreshTask {
	return &ConfigRefreshTask{
		engine: engine,
		logger: logger.With().Str("task", "config-refresh").Logger(),
	}
}

// Run fetches and stores the remote configuration.
func (t *ConfigRefreshTask) Run(ctx context.Context) error {
	t.logger.Info().Msg("Starting scheduled configuration refresh")
	return t.engine.RefreshConfiguration(ctx)
}

// RegisterConfigRefreshTask registers the configuration refresh task
// with the scheduler.
func RegisterConfigRefreshTask(sched *scheduler.Scheduler, engine *syncengine.Engine, cron string, runOnStart bool, logger zerolog.Logger) error {
	task := NewConfigRefreshTask(engine, logger)

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "refresh-configuration",
		Name:        "Configuration Refresh",
		Description: "Refreshes the cached remote catalog configuration",
		Cron:        cron,
		RunOnStart:  runOnStart,
		Func:        task.Run,
	})
}
