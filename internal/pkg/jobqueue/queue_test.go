package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewQueue tests the queue constructor
func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(nil, tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.False(t, queue.running)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)
	assert.Equal(t, "job_stats", JobStatsKey)

	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestEnqueueJobStoresDataAndStats(t *testing.T) {
	mr, q := newTestQueue(t, 1)
	ctx := context.Background()

	job, err := q.EnqueueJob(ctx, JobTypeSendEmail, SendEmailJobPayload{To: "a@example.com"}.ToMap())
	require.NoError(t, err)

	assert.True(t, mr.Exists(JobKeyPrefix+job.ID))
	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusPending])

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobTypeSendEmail, stored.Type)
	assert.Equal(t, "a@example.com", stored.Payload["to"])
}

func TestProcessNextRunsHandlerAndRemovesJob(t *testing.T) {
	mr, q := newTestQueue(t, 1)
	ctx := context.Background()

	var got *SendEmailJobPayload
	q.Register(JobTypeSendEmail, func(ctx context.Context, job *Job) error {
		p, err := SendEmailJobPayloadFromMap(job.Payload)
		got = p
		return err
	})

	job, err := q.EnqueueJob(ctx, JobTypeSendEmail, SendEmailJobPayload{Kind: "welcome", To: "b@example.com", Subject: "Hi"}.ToMap())
	require.NoError(t, err)

	processed, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	require.NotNil(t, got)
	assert.Equal(t, "welcome", got.Kind)
	assert.Equal(t, "b@example.com", got.To)
	assert.False(t, mr.Exists(JobKeyPrefix+job.ID))

	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, processing)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusCompleted])
}

func TestProcessNextOnEmptyQueue(t *testing.T) {
	_, q := newTestQueue(t, 1)

	processed, err := q.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestFailedJobIsRetriedThenGivesUp(t *testing.T) {
	_, q := newTestQueue(t, 1)
	ctx := context.Background()

	var attempts int32
	q.Register(JobTypeBlogTranslate, func(ctx context.Context, job *Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("upstream down")
	})

	job, err := q.EnqueueJob(ctx, JobTypeBlogTranslate, BlogTranslateJobPayload{PostID: 7, Locale: "de"}.ToMap())
	require.NoError(t, err)

	for i := 0; i < DefaultMaxRetries; i++ {
		ok := waitForCondition(func() bool {
			processed, err := q.ProcessNext(ctx)
			return err == nil && processed
		}, 2*time.Second)
		require.True(t, ok, "attempt %d was not dequeued", i+1)
	}

	assert.Equal(t, int32(DefaultMaxRetries), atomic.LoadInt32(&attempts))

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, DefaultMaxRetries, stored.RetryCount)
	assert.Equal(t, "upstream down", stored.ErrorMsg)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusFailed])
}

func TestUnknownJobTypeFails(t *testing.T) {
	_, q := newTestQueue(t, 1)
	ctx := context.Background()

	job, err := q.EnqueueJob(ctx, JobType("nope"), map[string]interface{}{})
	require.NoError(t, err)

	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.ErrorMsg, "unknown job type")
}

func TestRecoverStuckRequeuesOldProcessingJobs(t *testing.T) {
	_, q := newTestQueue(t, 1)
	ctx := context.Background()

	job, err := q.EnqueueJob(ctx, JobTypeSendEmail, SendEmailJobPayload{To: "c@example.com"}.ToMap())
	require.NoError(t, err)

	// simulate a crashed worker: job moved to processing and left there
	require.NoError(t, q.client.RPopLPush(ctx, JobQueueKey, JobProcessingKey).Err())
	job.MarkAsProcessing()
	old := time.Now().Add(-time.Hour)
	job.ProcessedAt = &old
	q.updateJob(ctx, job)

	// stray id without job data
	require.NoError(t, q.client.LPush(ctx, JobProcessingKey, "ghost").Err())

	n, err := q.RecoverStuck(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	processing, _ := q.GetProcessingSize(ctx)
	pending, _ := q.GetQueueSize(ctx)
	assert.Zero(t, processing)
	assert.Equal(t, int64(1), pending)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
}

func TestStartStopWorkersProcessJobs(t *testing.T) {
	_, q := newTestQueue(t, 2)
	ctx := context.Background()

	var done int32
	q.Register(JobTypeSendEmail, func(ctx context.Context, job *Job) error {
		atomic.AddInt32(&done, 1)
		return nil
	})

	q.Start()
	defer q.Stop()

	for i := 0; i < 5; i++ {
		_, err := q.EnqueueJob(ctx, JobTypeSendEmail, SendEmailJobPayload{To: "d@example.com"}.ToMap())
		require.NoError(t, err)
	}

	assert.True(t, waitForCondition(func() bool { return atomic.LoadInt32(&done) == 5 }, 3*time.Second))
}
