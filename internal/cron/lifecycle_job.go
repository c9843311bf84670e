package cron

import (
	"context"
	"fmt"

	"github.com/plateora/plateora-backend/internal/lifecycle"
	"github.com/plateora/plateora-backend/pkg/logger"
)

// passRunner is the slice of the lifecycle scheduler this job drives.
type passRunner interface {
	RunPass(ctx context.Context, opts lifecycle.RunOptions) (*lifecycle.PassSummary, error)
}

// LifecycleJobParams configure the auction lifecycle job.
type LifecycleJobParams struct {
	Logger    *logger.Logger
	Scheduler passRunner
}

// NewLifecycleJob builds the cron job that runs a full scheduler pass:
// promotions, completions, and the settlements those completions trigger.
func NewLifecycleJob(params LifecycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Scheduler == nil {
		return nil, fmt.Errorf("scheduler required")
	}
	return &lifecycleJob{logg: params.Logger, scheduler: params.Scheduler}, nil
}

type lifecycleJob struct {
	logg      *logger.Logger
	scheduler passRunner
}

func (j *lifecycleJob) Name() string { return "auction-lifecycle" }

func (j *lifecycleJob) Run(ctx context.Context) error {
	summary, err := j.scheduler.RunPass(ctx, lifecycle.RunOptions{})
	if summary != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"processed":   summary.Processed,
			"promoted":    summary.Promoted,
			"completed":   summary.Completed,
			"settlements": len(summary.Settlements),
		})
		j.logg.Info(logCtx, "auction lifecycle pass finished")
	}
	return err
}
