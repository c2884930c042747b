package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

func EnqueueDispatch(ctx context.Context, asynqClient *asynq.Client, payload DispatchPostPayload, at time.Time) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDispatchPost, taskPayload)

	_, err = asynqClient.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(taskID(payload.PostID, at)),
		asynq.MaxRetry(0),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error enqueueing dispatch for post %d: %w", payload.PostID, err)
	}

	slog.Info("dispatch task scheduled", "post_id", payload.PostID, "at", at.Format(time.RFC3339))
	return nil
}

// taskID makes rescheduling to the same instant idempotent. A different
// instant gets its own task and the stale one finds the post not due.
func taskID(postID int64, at time.Time) string {
	return fmt.Sprintf("%s:%d:%d", TaskTypeDispatchPost, postID, at.Unix())
}

// Enqueuer schedules a dispatch task whenever a post gets a time.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) Trigger(ctx context.Context, postID int64, at time.Time) error {
	return EnqueueDispatch(ctx, e.client, DispatchPostPayload{PostID: postID}, at)
}
