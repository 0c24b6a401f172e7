package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const (
	defaultPurgeBatch = 500
	defaultMaxBatches = 200
)

// PurgeFunc deletes at most limit rows older than cutoff and reports how
// many it removed.
type PurgeFunc func(ctx context.Context, cutoff time.Time, limit int) (int64, error)

// Sweep ages out one table.
type Sweep struct {
	Table string
	Keep  time.Duration
	Purge PurgeFunc
}

type RetentionJobParams struct {
	Logger     *logger.Logger
	Sweeps     []Sweep
	BatchSize  int
	MaxBatches int
}

// NewRetentionJob deletes expired outbox rows in bounded batches so no
// single statement holds locks for long. A run stops a sweep after
// MaxBatches; the rest is picked up on the next tick.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if len(params.Sweeps) == 0 {
		return nil, errors.New("at least one sweep required")
	}
	for _, sw := range params.Sweeps {
		if sw.Table == "" || sw.Purge == nil || sw.Keep <= 0 {
			return nil, fmt.Errorf("sweep %q needs a table, a purge func and a positive keep", sw.Table)
		}
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPurgeBatch
	}
	maxBatches := params.MaxBatches
	if maxBatches <= 0 {
		maxBatches = defaultMaxBatches
	}
	return &retentionJob{
		logg:       params.Logger,
		sweeps:     params.Sweeps,
		batch:      batch,
		maxBatches: maxBatches,
		now:        time.Now,
	}, nil
}

type retentionJob struct {
	logg       *logger.Logger
	sweeps     []Sweep
	batch      int
	maxBatches int
	now        func() time.Time
}

func (j *retentionJob) Name() string { return "outbox-retention" }

// Run sweeps every table even when an earlier one fails.
func (j *retentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error
	for _, sw := range j.sweeps {
		if err := j.sweep(ctx, sw, now.Add(-sw.Keep)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("purge %s: %w", sw.Table, err))
		}
	}
	return errs
}

func (j *retentionJob) sweep(ctx context.Context, sw Sweep, cutoff time.Time) error {
	var (
		deleted int64
		batches int
		full    bool
		err     error
	)
	for batches < j.maxBatches {
		if err = ctx.Err(); err != nil {
			break
		}
		var n int64
		n, err = sw.Purge(ctx, cutoff, j.batch)
		if err != nil {
			break
		}
		deleted += n
		batches++
		if full = n >= int64(j.batch); !full {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"table":        sw.Table,
		"cutoff":       cutoff,
		"rows_deleted": deleted,
		"batches":      batches,
	})
	switch {
	case err != nil:
		return err
	case full:
		j.logg.Warn(logCtx, "retention.backlog_remaining")
	default:
		j.logg.Info(logCtx, "retention.swept")
	}
	return nil
}
