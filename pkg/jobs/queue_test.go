package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, q *Queue, id string, want State) Status {
	t.Helper()
	var st Status
	require.Eventually(t, func() bool {
		var ok bool
		st, ok = q.Status(id)
		return ok && st.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func TestQueueRecordsResult(t *testing.T) {
	q := NewQueue("imports", func(_ context.Context, job Job) (any, error) {
		return job.Payload.(string) + "-done", nil
	}, Config{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Submit("attendance_import", "sheet")
	require.NoError(t, err)
	st := waitFor(t, q, id, StateSucceeded)
	assert.Equal(t, "sheet-done", st.Result)
	assert.Equal(t, 1, st.Attempts)
}

func TestQueueRetriesThenFails(t *testing.T) {
	var calls int32
	q := NewQueue("imports", func(context.Context, Job) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	}, Config{MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Submit("attendance_import", nil)
	require.NoError(t, err)
	st := waitFor(t, q, id, StateFailed)
	assert.Equal(t, 3, st.Attempts)
	assert.Equal(t, "boom", st.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueSkipsRetryForPermanentErrors(t *testing.T) {
	var calls int32
	permanent := errors.New("invalid sheet")
	q := NewQueue("imports", func(context.Context, Job) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, permanent
	}, Config{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Retryable:  func(err error) bool { return !errors.Is(err, permanent) },
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Submit("attendance_import", nil)
	require.NoError(t, err)
	st := waitFor(t, q, id, StateFailed)
	assert.Equal(t, 1, st.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueExpiresFinishedStatuses(t *testing.T) {
	q := NewQueue("imports", func(context.Context, Job) (any, error) { return "ok", nil }, Config{StatusTTL: 20 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	first, err := q.Submit("attendance_import", nil)
	require.NoError(t, err)
	waitFor(t, q, first, StateSucceeded)
	time.Sleep(40 * time.Millisecond)

	second, err := q.Submit("attendance_import", nil)
	require.NoError(t, err)
	waitFor(t, q, second, StateSucceeded)
	_, ok := q.Status(first)
	assert.False(t, ok)
}

func TestQueueRejectsSubmitBeforeStart(t *testing.T) {
	q := NewQueue("imports", func(context.Context, Job) (any, error) { return nil, nil }, Config{})
	_, err := q.Submit("x", nil)
	require.Error(t, err)
	_, ok := q.Status("missing")
	assert.False(t, ok)
}
