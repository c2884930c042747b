package queue

import (
	"context"
)

// Dispatcher runs a claimed dispatch for one post.
type Dispatcher interface {
	DispatchByID(ctx context.Context, id int64) error
}

type Queue struct {
	d Dispatcher
}

func NewQueue(d Dispatcher) *Queue {
	return &Queue{d: d}
}

const TaskTypeDispatchPost = "dispatch:post"

type DispatchPostPayload struct {
	PostID int64 `json:"post_id"`
}
