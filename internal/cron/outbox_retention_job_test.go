package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/testutil"
)

func TestOutboxRetentionJobUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{chunks: []int64{7}}
	job := newOutboxRetentionJob(t, repo, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC), repo.lastCutoff)
	require.Equal(t, outboxMinAttempts, repo.minAttempts)
	require.Equal(t, outboxPruneChunk, repo.limit)
	require.Equal(t, 1, repo.called)
}

func TestOutboxRetentionJobLoopsUntilShortChunk(t *testing.T) {
	repo := &fakeOutboxPruner{chunks: []int64{2, 2, 1}}
	job := newOutboxRetentionJob(t, repo, 2)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 3, repo.called)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxPruner{err: errors.New("boom")}, 0)
	require.ErrorContains(t, job.Run(context.Background()), "boom")
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxPruner, chunk int) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testutil.Logger(),
		DB:         passthroughTx{},
		Repository: repo,
		Chunk:      chunk,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*outboxRetentionJob)
	require.True(t, ok)
	return job
}

type fakeOutboxPruner struct {
	chunks      []int64
	lastCutoff  time.Time
	minAttempts int
	limit       int
	called      int
	err         error
}

func (f *fakeOutboxPruner) PruneBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error) {
	f.lastCutoff = cutoff
	f.minAttempts = minAttemptCount
	f.limit = limit
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	if f.called < len(f.chunks) {
		n = f.chunks[f.called]
	}
	f.called++
	return n, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
