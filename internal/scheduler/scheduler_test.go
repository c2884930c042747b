package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/publisher"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type memPosts struct {
	mu      sync.Mutex
	posts   map[int64]*models.Post
	listErr error
	markErr error
	claimed map[int64]bool
	sentAt  map[int64]time.Time
}

func newMemPosts(posts ...*models.Post) *memPosts {
	m := &memPosts{posts: map[int64]*models.Post{}, claimed: map[int64]bool{}, sentAt: map[int64]time.Time{}}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *memPosts) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, service.ErrPostNotFound
	}
	c := *p
	return &c, nil
}

func (m *memPosts) ListDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.Post
	for _, p := range m.posts {
		if p.IsDue(now) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	return out, nil
}

func (m *memPosts) ClaimForDispatch(ctx context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[id] || m.posts[id].SentAt != nil {
		return false, nil
	}
	m.claimed[id] = true
	return true, nil
}

func (m *memPosts) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return false, m.markErr
	}
	p := m.posts[id]
	if p.SentAt != nil {
		return false, nil
	}
	p.SentAt = &at
	m.sentAt[id] = at
	delete(m.claimed, id)
	return true, nil
}

func (m *memPosts) ReleaseClaim(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, id)
	return nil
}

type scriptedDispatcher struct {
	mu    sync.Mutex
	calls []int64
	fn    func(post *models.Post) publisher.Outcome
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, post *models.Post) publisher.Outcome {
	d.mu.Lock()
	d.calls = append(d.calls, post.ID)
	d.mu.Unlock()
	if d.fn == nil {
		return publisher.Outcome{Success: true}
	}
	return d.fn(post)
}

func scheduledPost(id int64, at time.Time, platform string) *models.Post {
	return &models.Post{ID: id, Title: "p", Platform: platform, ScheduledAt: &at}
}

func newTestScheduler(posts Posts, d Dispatcher) *Scheduler {
	s := New(posts, d, time.Minute)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestRunCycle_DispatchesDuePostsInOrder(t *testing.T) {
	posts := newMemPosts(
		scheduledPost(1, fixedNow.Add(-time.Minute), "Gmail"),
		scheduledPost(2, fixedNow.Add(-time.Hour), "WordPress"),
		scheduledPost(3, fixedNow.Add(time.Hour), "LinkedIn"),
		&models.Post{ID: 4, Title: "draft", Platform: "Gmail"},
	)
	d := &scriptedDispatcher{}

	report := newTestScheduler(posts, d).RunCycle(context.Background())

	assert.Equal(t, Report{Due: 2, Sent: 2}, report)
	assert.Equal(t, []int64{2, 1}, d.calls)
	assert.Equal(t, fixedNow, posts.sentAt[1])
	assert.Equal(t, fixedNow, posts.sentAt[2])
	assert.Nil(t, posts.posts[3].SentAt)
}

func TestRunCycle_FailureKeepsPostScheduled(t *testing.T) {
	posts := newMemPosts(
		scheduledPost(1, fixedNow.Add(-2*time.Minute), "Instagram"),
		scheduledPost(2, fixedNow.Add(-time.Minute), "Gmail"),
	)
	d := &scriptedDispatcher{fn: func(post *models.Post) publisher.Outcome {
		if post.ID == 1 {
			return publisher.Outcome{Err: publisher.ErrNoMedia}
		}
		return publisher.Outcome{Success: true}
	}}
	s := newTestScheduler(posts, d)

	report := s.RunCycle(context.Background())
	assert.Equal(t, Report{Due: 2, Sent: 1, Failed: 1}, report)
	assert.Nil(t, posts.posts[1].SentAt)
	assert.False(t, posts.claimed[1])

	// retried on the next cycle without a cutoff
	report = s.RunCycle(context.Background())
	assert.Equal(t, Report{Due: 1, Failed: 1}, report)
	assert.Equal(t, []int64{1, 2, 1}, d.calls)
}

func TestRunCycle_PanicInOnePostDoesNotStopOthers(t *testing.T) {
	posts := newMemPosts(
		scheduledPost(1, fixedNow.Add(-2*time.Minute), "LinkedIn"),
		scheduledPost(2, fixedNow.Add(-time.Minute), "Gmail"),
	)
	d := &scriptedDispatcher{fn: func(post *models.Post) publisher.Outcome {
		if post.ID == 1 {
			panic("unexpected")
		}
		return publisher.Outcome{Success: true}
	}}

	report := newTestScheduler(posts, d).RunCycle(context.Background())
	assert.Equal(t, Report{Due: 2, Sent: 1, Failed: 1}, report)
	assert.False(t, posts.claimed[1])
	assert.NotNil(t, posts.posts[2].SentAt)
}

type panickingPosts struct{ *memPosts }

func (panickingPosts) ListDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error) {
	panic("store exploded")
}

func TestRunCycle_RecoversFromCyclePanic(t *testing.T) {
	s := newTestScheduler(panickingPosts{newMemPosts()}, &scriptedDispatcher{})
	assert.NotPanics(t, func() {
		assert.Equal(t, Report{}, s.RunCycle(context.Background()))
	})
}

func TestRunCycle_ListErrorIsLogged(t *testing.T) {
	posts := newMemPosts()
	posts.listErr = errors.New("connection refused")
	assert.Equal(t, Report{}, newTestScheduler(posts, &scriptedDispatcher{}).RunCycle(context.Background()))
}

func TestRunCycle_SkipsPostsClaimedElsewhere(t *testing.T) {
	posts := newMemPosts(scheduledPost(1, fixedNow.Add(-time.Minute), "Gmail"))
	posts.claimed[1] = true
	d := &scriptedDispatcher{}

	report := newTestScheduler(posts, d).RunCycle(context.Background())
	assert.Equal(t, Report{Due: 1, Skipped: 1}, report)
	assert.Empty(t, d.calls)
}

func TestRunCycle_MarkSentFailureKeepsClaim(t *testing.T) {
	posts := newMemPosts(scheduledPost(1, fixedNow.Add(-time.Minute), "Gmail"))
	posts.markErr = errors.New("connection reset")
	d := &scriptedDispatcher{}
	s := newTestScheduler(posts, d)

	report := s.RunCycle(context.Background())
	assert.Equal(t, Report{Due: 1, Failed: 1}, report)
	assert.True(t, posts.claimed[1])

	// the claim blocks a resend until the lease runs out
	report = s.RunCycle(context.Background())
	assert.Equal(t, Report{Due: 1, Skipped: 1}, report)
	assert.Equal(t, []int64{1}, d.calls)
}

func TestDispatchByID(t *testing.T) {
	posts := newMemPosts(
		scheduledPost(1, fixedNow.Add(-time.Second), "Gmail"),
		scheduledPost(2, fixedNow.Add(time.Hour), "Gmail"),
		scheduledPost(3, fixedNow.Add(-time.Second), "Fax"),
	)
	d := &scriptedDispatcher{fn: func(post *models.Post) publisher.Outcome {
		if post.ID == 3 {
			return publisher.Outcome{Err: publisher.ErrUnknownPlatform}
		}
		return publisher.Outcome{Success: true}
	}}
	s := newTestScheduler(posts, d)
	ctx := context.Background()

	require.NoError(t, s.DispatchByID(ctx, 1))
	assert.NotNil(t, posts.posts[1].SentAt)

	// already sent: no second delivery
	require.NoError(t, s.DispatchByID(ctx, 1))
	// not yet due
	require.NoError(t, s.DispatchByID(ctx, 2))
	// deleted
	require.NoError(t, s.DispatchByID(ctx, 99))

	require.Error(t, s.DispatchByID(ctx, 3))
	assert.Nil(t, posts.posts[3].SentAt)

	assert.Equal(t, []int64{1, 3}, d.calls)
}

type historyEntry struct {
	postID int64
	ok     bool
}

type memHistory struct{ entries []historyEntry }

func (h *memHistory) Record(ctx context.Context, postID int64, platform string, err error, d time.Duration) error {
	h.entries = append(h.entries, historyEntry{postID, err == nil})
	return nil
}

func TestRunCycle_RecordsEveryAttempt(t *testing.T) {
	posts := newMemPosts(
		scheduledPost(1, fixedNow.Add(-2*time.Minute), "Instagram"),
		scheduledPost(2, fixedNow.Add(-time.Minute), "Gmail"),
	)
	d := &scriptedDispatcher{fn: func(post *models.Post) publisher.Outcome {
		if post.ID == 1 {
			return publisher.Outcome{Err: publisher.ErrNoMedia}
		}
		return publisher.Outcome{Success: true}
	}}
	h := &memHistory{}

	newTestScheduler(posts, d).WithHistory(h).RunCycle(context.Background())
	assert.Equal(t, []historyEntry{{1, false}, {2, true}}, h.entries)
}

func TestRun_StopsOnCancel(t *testing.T) {
	posts := newMemPosts(scheduledPost(1, fixedNow.Add(-time.Minute), "Gmail"))
	d := &scriptedDispatcher{}
	s := newTestScheduler(posts, d)
	s.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.calls) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, []int64{1}, d.calls)
}
