package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/metrics"
)

const (
	outboxRetentionDays = 30
	outboxMinAttempts   = 10
	outboxPruneChunk    = 500
	maxPruneChunks      = 40
)

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxPruner
	Metrics     *metrics.CronJobMetrics
	Retention   int
	MinAttempts int
	Chunk       int
}

type outboxPruner interface {
	PruneBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error)
}

// NewOutboxRetentionJob prunes relayed order events, and parked ones, once
// they age past the retention window. Audit rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		metrics:     params.Metrics,
		retention:   params.Retention,
		minAttempts: params.MinAttempts,
		chunk:       params.Chunk,
		now:         time.Now,
	}
	if job.retention <= 0 {
		job.retention = outboxRetentionDays
	}
	if job.minAttempts <= 0 {
		job.minAttempts = outboxMinAttempts
	}
	if job.chunk <= 0 {
		job.chunk = outboxPruneChunk
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxPruner
	metrics     *metrics.CronJobMetrics
	retention   int
	minAttempts int
	chunk       int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes in chunks, one transaction each, so the relay never waits long
// on row locks held by the prune.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var total int64
	for i := 0; i < maxPruneChunks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := j.repo.PruneBefore(ctx, tx, cutoff, j.minAttempts, j.chunk)
			deleted = n
			return err
		})
		if err != nil {
			j.metrics.AddProcessed(j.Name(), total)
			return fmt.Errorf("outbox retention: %w", err)
		}
		total += deleted
		if deleted < int64(j.chunk) {
			break
		}
	}
	j.metrics.AddProcessed(j.Name(), total)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   total,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
