package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/maheshrc27/contentflow/internal/metrics"
	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/publisher"
	"github.com/maheshrc27/contentflow/internal/service"
)

// Posts is the part of the post service the scheduler needs.
type Posts interface {
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	ListDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error)
	ClaimForDispatch(ctx context.Context, id int64, now time.Time) (bool, error)
	MarkSent(ctx context.Context, id int64, at time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, id int64) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, post *models.Post) publisher.Outcome
}

// Recorder keeps the outcome of every dispatch attempt.
type Recorder interface {
	Record(ctx context.Context, postID int64, platform string, err error, d time.Duration) error
}

type Report struct {
	Due     int
	Sent    int
	Failed  int
	Skipped int
}

type Scheduler struct {
	posts      Posts
	dispatcher Dispatcher
	history    Recorder
	interval   time.Duration
	now        func() time.Time
}

func New(posts Posts, dispatcher Dispatcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		posts:      posts,
		dispatcher: dispatcher,
		interval:   interval,
		now:        time.Now,
	}
}

// WithHistory records each attempt through r.
func (s *Scheduler) WithHistory(r Recorder) *Scheduler {
	s.history = r
	return s
}

// Run executes a cycle right away and then once per interval until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.RunCycle(ctx)

		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle dispatches every due post once. A panic inside the cycle is logged
// and swallowed so the loop keeps going.
func (s *Scheduler) RunCycle(ctx context.Context) (report Report) {
	metrics.IncSchedulerCycle()
	defer func() {
		if r := recover(); r != nil {
			metrics.IncSchedulerPanic()
			slog.Error("critical: scheduler cycle panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	now := s.now()
	posts, err := s.posts.ListDuePosts(ctx, now)
	if err != nil {
		slog.Error("error listing due posts", "error", err)
		return report
	}
	metrics.SetDuePosts(len(posts))

	for _, post := range posts {
		if ctx.Err() != nil {
			break
		}
		if !post.IsDue(now) {
			continue
		}
		report.Due++

		switch s.process(ctx, post) {
		case resultSent:
			report.Sent++
		case resultFailed:
			report.Failed++
		default:
			report.Skipped++
		}
	}

	slog.Info("scheduler cycle finished", "due", report.Due, "sent", report.Sent, "failed", report.Failed, "skipped", report.Skipped)
	return report
}

// DispatchByID dispatches a single post if it is due and nobody else holds
// it. Posts that are missing, sent or not yet due are left alone.
func (s *Scheduler) DispatchByID(ctx context.Context, id int64) error {
	post, err := s.posts.GetPost(ctx, id)
	if errors.Is(err, service.ErrPostNotFound) {
		slog.Info("dispatch skipped, post no longer exists", "post_id", id)
		return nil
	}
	if err != nil {
		return err
	}

	if !post.IsDue(s.now()) {
		slog.Info("dispatch skipped, post is not due", "post_id", id, "state", string(post.State()))
		return nil
	}

	if s.process(ctx, post) == resultFailed {
		return fmt.Errorf("dispatch of post %d failed", id)
	}
	return nil
}

type result int

const (
	resultSkipped result = iota
	resultSent
	resultFailed
)

// process claims, dispatches and records a single post. Nothing that happens
// here may escape to the caller's loop.
func (s *Scheduler) process(ctx context.Context, post *models.Post) (res result) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncSchedulerPanic()
			slog.Error("critical: dispatch panicked", "post_id", post.ID, "panic", fmt.Sprint(r))
			s.release(ctx, post.ID)
			res = resultFailed
		}
	}()

	claimed, err := s.posts.ClaimForDispatch(ctx, post.ID, s.now())
	if err != nil {
		slog.Error("error claiming post", "post_id", post.ID, "error", err)
		return resultFailed
	}
	if !claimed {
		slog.Info("post is claimed elsewhere", "post_id", post.ID)
		return resultSkipped
	}

	out := s.dispatcher.Dispatch(ctx, post)
	s.record(ctx, post, out)
	if !out.Success {
		slog.Error("post dispatch failed",
			"post_id", post.ID,
			"platform", post.Platform,
			"duration", out.Duration.String(),
			"error", out.Err,
		)
		s.release(ctx, post.ID)
		return resultFailed
	}

	ok, err := s.posts.MarkSent(ctx, post.ID, s.now())
	if err != nil {
		// the post was delivered; leaving the claim prevents an immediate resend
		slog.Error("error marking post as sent", "post_id", post.ID, "error", err)
		return resultFailed
	}
	if !ok {
		slog.Warn("post was already marked as sent", "post_id", post.ID)
	}

	slog.Info("post dispatched",
		"post_id", post.ID,
		"platform", post.Platform,
		"duration", out.Duration.String(),
	)
	return resultSent
}

func (s *Scheduler) record(ctx context.Context, post *models.Post, out publisher.Outcome) {
	if s.history == nil {
		return
	}
	err := out.Err
	if !out.Success && err == nil {
		err = errors.New("dispatch failed")
	}
	if err := s.history.Record(context.WithoutCancel(ctx), post.ID, post.Platform, err, out.Duration); err != nil {
		slog.Info(err.Error())
	}
}

func (s *Scheduler) release(ctx context.Context, id int64) {
	if err := s.posts.ReleaseClaim(context.WithoutCancel(ctx), id); err != nil {
		slog.Error("error releasing claim", "post_id", id, "error", err)
	}
}
