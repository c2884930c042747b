package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
	"github.com/maheshrc27/contentflow/internal/metrics"
	"github.com/maheshrc27/contentflow/internal/models"
)

var (
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrNotConfigured   = errors.New("publisher is not configured")
	ErrNoRecipients    = errors.New("post has no recipients")
	ErrNoMedia         = errors.New("post has no usable media")
	ErrTimeout         = errors.New("dispatch timed out")
)

// Publisher sends a post to one platform. Publish must honour ctx
// cancellation.
type Publisher interface {
	Platform() models.Platform
	Publish(ctx context.Context, post *models.Post) error
}

type Outcome struct {
	Success  bool
	Err      error
	Duration time.Duration
}

// Registry routes a post to the publisher of its base platform.
type Registry struct {
	publishers map[models.Platform]Publisher
	limit      time.Duration
	policy     timeout.Timeout[any]
}

func NewRegistry(dispatchTimeout time.Duration, publishers ...Publisher) *Registry {
	if dispatchTimeout <= 0 {
		dispatchTimeout = 5 * time.Minute
	}
	r := &Registry{
		publishers: make(map[models.Platform]Publisher, len(publishers)),
		limit:      dispatchTimeout,
		policy:     timeout.New[any](dispatchTimeout),
	}
	for _, p := range publishers {
		r.publishers[p.Platform()] = p
	}
	return r
}

// Dispatch never panics and never returns an error: every failure is
// folded into the outcome.
func (r *Registry) Dispatch(ctx context.Context, post *models.Post) (out Outcome) {
	start := time.Now()
	platform, ok := models.ParsePlatform(post.Platform)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("publisher panicked", "post_id", post.ID, "platform", post.Platform, "panic", rec, "stack", string(debug.Stack()))
			out = Outcome{Err: fmt.Errorf("publisher panic: %v", rec)}
		}
		out.Duration = time.Since(start)
		metrics.ObserveDispatch(metricLabel(platform, ok), out.Success, out.Duration)
	}()

	if !ok {
		return Outcome{Err: fmt.Errorf("%w: %q", ErrUnknownPlatform, post.Platform)}
	}
	p, found := r.publishers[platform]
	if !found {
		return Outcome{Err: fmt.Errorf("%w: %s", ErrNotConfigured, platform)}
	}

	// The policy only cancels the context; the deadline lets publishers bound
	// their own blocking I/O.
	ctx, cancel := context.WithTimeout(ctx, r.limit)
	defer cancel()

	_, err := failsafe.With[any](r.policy).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[any]) (any, error) {
			return nil, p.Publish(exec.Context(), post)
		})
	if err != nil {
		if errors.Is(err, timeout.ErrExceeded) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrTimeout, time.Since(start).Round(time.Millisecond))
		}
		return Outcome{Err: err}
	}
	return Outcome{Success: true}
}

func metricLabel(p models.Platform, ok bool) string {
	if !ok {
		return "unknown"
	}
	return string(p)
}

// MediaPaths splits the post media into images and videos, keeping only
// files that exist on disk. Order follows the post's media order.
func MediaPaths(post *models.Post) (images, videos []string) {
	for _, m := range post.MediaAssets {
		if m == nil {
			continue
		}
		if _, err := os.Stat(m.FilePath); err != nil {
			slog.Warn("media file missing, skipped", "post_id", post.ID, "path", m.FilePath)
			continue
		}
		switch m.FileType {
		case models.MediaTypeImage:
			images = append(images, m.FilePath)
		case models.MediaTypeVideo:
			videos = append(videos, m.FilePath)
		}
	}
	return images, videos
}
