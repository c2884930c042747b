package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	ids []int64
	err error
}

func (r *recordingDispatcher) DispatchByID(ctx context.Context, id int64) error {
	r.ids = append(r.ids, id)
	return r.err
}

func dispatchTask(t *testing.T, payload any) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TaskTypeDispatchPost, b)
}

func TestHandleDispatchPostTask(t *testing.T) {
	d := &recordingDispatcher{}
	q := NewQueue(d)

	require.NoError(t, q.HandleDispatchPostTask(context.Background(), dispatchTask(t, DispatchPostPayload{PostID: 42})))
	assert.Equal(t, []int64{42}, d.ids)
}

func TestHandleDispatchPostTask_FailuresAreNotRetried(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("gmail unreachable")}
	q := NewQueue(d)

	err := q.HandleDispatchPostTask(context.Background(), dispatchTask(t, DispatchPostPayload{PostID: 7}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = q.HandleDispatchPostTask(context.Background(), asynq.NewTask(TaskTypeDispatchPost, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = q.HandleDispatchPostTask(context.Background(), dispatchTask(t, map[string]any{"post_id": 0}))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	assert.Equal(t, []int64{7}, d.ids)
}

func TestTaskID(t *testing.T) {
	at := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "dispatch:post:5:1741600800", taskID(5, at))
	assert.NotEqual(t, taskID(5, at), taskID(5, at.Add(time.Minute)))
}
