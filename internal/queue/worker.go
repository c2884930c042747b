package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandleDispatchPostTask(ctx context.Context, task *asynq.Task) error {
	var payload DispatchPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid dispatch payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PostID <= 0 {
		return fmt.Errorf("invalid post id %d: %w", payload.PostID, asynq.SkipRetry)
	}

	// failures stay with the poll loop, which retries every cycle
	if err := q.d.DispatchByID(ctx, payload.PostID); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}

// Mux routes queue tasks to their handlers.
func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeDispatchPost, q.HandleDispatchPostTask)
	return mux
}
