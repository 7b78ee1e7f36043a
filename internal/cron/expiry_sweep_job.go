package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/metrics"
)

const (
	defaultSweepBatch = 200
	maxSweepBatches   = 50
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderSweeper interface {
	Sweep(ctx context.Context, runner orders.TxRunner, now time.Time, limit int) (int, error)
}

// ExpirySweepJobParams configure the pending order expiry sweep.
type ExpirySweepJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Expirer orderSweeper
	Metrics *metrics.CronJobMetrics
	Batch   int
}

// NewExpirySweepJob builds the job that cancels PENDING orders past their
// deadline. Payment confirmation expires orders lazily either way; the sweep
// only keeps listings accurate between confirmations.
func NewExpirySweepJob(params ExpirySweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &expirySweepJob{
		logg:    params.Logger,
		db:      params.DB,
		expirer: params.Expirer,
		metrics: params.Metrics,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type expirySweepJob struct {
	logg    *logger.Logger
	db      txRunner
	expirer orderSweeper
	metrics *metrics.CronJobMetrics
	batch   int
	now     func() time.Time
}

func (j *expirySweepJob) Name() string { return "order-expiry-sweep" }

// Run drains overdue orders batch by batch. A short batch means the backlog
// is empty.
func (j *expirySweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	total := 0
	for i := 0; i < maxSweepBatches; i++ {
		expired, err := j.expirer.Sweep(ctx, j.db, cutoff, j.batch)
		total += expired
		if err != nil {
			j.metrics.AddProcessed(j.Name(), int64(total))
			return fmt.Errorf("expiry sweep: %w", err)
		}
		if expired < j.batch {
			break
		}
	}
	j.metrics.AddProcessed(j.Name(), int64(total))

	logCtx := j.logg.WithFields(ctx, map[string]any{"expired": total, "cutoff": cutoff})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return nil
}
