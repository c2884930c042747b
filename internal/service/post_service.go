package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/maheshrc27/contentflow/internal/cache"
	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/repository"
	"github.com/maheshrc27/contentflow/internal/transfer"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrPostSent        = errors.New("post was already sent and can no longer change")
	ErrDuplicateTitle  = errors.New("a post with this title already exists")
	ErrScheduleInPast  = errors.New("scheduled time must be in the future")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrMediaNotFound   = errors.New("media asset not found")
	ErrEmptyTitle      = errors.New("title cannot be empty")
)

const untitledLayout = "2006-01-02 15:04:05"

// DispatchTrigger is notified when a post gets a schedule so that it can be
// dispatched close to its time instead of on the next poll.
type DispatchTrigger interface {
	Trigger(ctx context.Context, postID int64, at time.Time) error
}

type PostService interface {
	CreatePost(ctx context.Context, pc *transfer.PostCreation) (int64, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	UpdatePost(ctx context.Context, id int64, pu *transfer.PostUpdate) (bool, error)
	DeletePost(ctx context.Context, id int64) (bool, error)
	SchedulePost(ctx context.Context, id int64, at time.Time) error
	UnschedulePost(ctx context.Context, id int64) error
	LinkMedia(ctx context.Context, postID int64, mediaIDs []int64) error
	TitleExists(ctx context.Context, title string) (bool, error)

	GetProgrammedPosts(ctx context.Context) ([]*models.Post, error)
	GetUnprogrammedPosts(ctx context.Context) ([]*models.Post, error)
	GetSentPosts(ctx context.Context) ([]*models.Post, error)
	GetProgrammedPostsByPlatform(ctx context.Context, platform string) ([]*models.Post, error)
	GetUnprogrammedPostsByPlatform(ctx context.Context, platform string) ([]*models.Post, error)
	GetSentPostsByPlatform(ctx context.Context, platform string) ([]*models.Post, error)
	GetPostsByState(ctx context.Context, state models.PostState, platform string) ([]*models.Post, error)

	ListDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error)
	ClaimForDispatch(ctx context.Context, id int64, now time.Time) (bool, error)
	MarkSent(ctx context.Context, id int64, at time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, id int64) error
}

type postService struct {
	tx      repository.Transactor
	pr      repository.PostRepository
	pm      repository.PostMediaRepository
	ma      repository.MediaAssetRepository
	c       cache.Cache
	ttl     time.Duration
	lease   time.Duration
	trigger DispatchTrigger
	now     func() time.Time
}

func NewPostService(
	tx repository.Transactor,
	pr repository.PostRepository,
	pm repository.PostMediaRepository,
	ma repository.MediaAssetRepository,
	c cache.Cache,
	ttl time.Duration,
	lease time.Duration,
	trigger DispatchTrigger) PostService {
	return &postService{
		tx:      tx,
		pr:      pr,
		pm:      pm,
		ma:      ma,
		c:       c,
		ttl:     ttl,
		lease:   lease,
		trigger: trigger,
		now:     time.Now,
	}
}

func (s *postService) CreatePost(ctx context.Context, pc *transfer.PostCreation) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Info(err.Error())
		return 0, err
	}

	platform, ok := models.ParsePlatform(pc.Platform)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlatform, pc.Platform)
	}

	now := s.now()
	if pc.ScheduledAt != nil && !pc.ScheduledAt.After(now) {
		return 0, ErrScheduleInPast
	}

	title := strings.TrimSpace(pc.Title)
	if title == "" {
		title = fmt.Sprintf("Untitled post for %s - %s", pc.Platform, now.Format(untitledLayout))
	}

	exists, err := s.pr.TitleExists(ctx, title)
	if err != nil {
		return 0, fmt.Errorf("error checking title: %w", err)
	}
	if exists {
		return 0, ErrDuplicateTitle
	}

	post := models.Post{
		Title:       title,
		Content:     pc.Content,
		ContentHTML: pc.ContentHTML,
		Subject:     pc.Subject,
		Platform:    strings.TrimSpace(pc.Platform),
		ScheduledAt: pc.ScheduledAt,
	}
	if platform.UsesRecipients() {
		post.Contacts = snapshotRecipients(pc.Contacts)
	}

	var postID int64
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		if postID, err = s.pr.Create(ctx, tx, &post); err != nil {
			return err
		}
		return s.linkMedia(ctx, tx, postID, pc.MediaIDs)
	})
	if err != nil {
		return 0, postError("error creating post", err)
	}

	s.invalidate(ctx)
	if post.ScheduledAt != nil {
		s.notify(ctx, postID, *post.ScheduledAt)
	}
	slog.Info("post created", "post_id", postID, "platform", post.Platform, "scheduled", post.ScheduledAt != nil)
	return postID, nil
}

// linkMedia associates media in the given order. Positions follow the slice.
func (s *postService) linkMedia(ctx context.Context, tx *sql.Tx, postID int64, mediaIDs []int64) error {
	seen := map[int64]struct{}{}
	position := 0
	for _, mediaID := range mediaIDs {
		if _, ok := seen[mediaID]; ok {
			continue
		}
		seen[mediaID] = struct{}{}

		pm := models.PostMedia{PostID: postID, MediaID: mediaID, Position: position}
		if err := s.pm.Create(ctx, tx, &pm); err != nil {
			if errors.Is(err, repository.ErrForeignKeyViolation) {
				return fmt.Errorf("%w: %d", ErrMediaNotFound, mediaID)
			}
			return err
		}
		position++
	}
	return nil
}

func (s *postService) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting post: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	media, err := s.ma.ListByPostID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("error getting post media: %w", err)
	}
	post.MediaAssets = media
	return post, nil
}

// UpdatePost applies the non-nil fields. It reports false when the post does
// not exist.
func (s *postService) UpdatePost(ctx context.Context, id int64, pu *transfer.PostUpdate) (bool, error) {
	if pu == nil {
		return false, errors.New("post update data is nil")
	}

	current, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error getting post: %w", err)
	}
	if current == nil {
		return false, nil
	}
	if current.SentAt != nil {
		return false, ErrPostSent
	}

	fields := repository.PostFields{
		Content:     pu.Content,
		ContentHTML: pu.ContentHTML,
		Subject:     pu.Subject,
	}

	if pu.Title != nil {
		title := strings.TrimSpace(*pu.Title)
		if title == "" {
			return false, ErrEmptyTitle
		}
		if title != current.Title {
			exists, err := s.pr.TitleExists(ctx, title)
			if err != nil {
				return false, fmt.Errorf("error checking title: %w", err)
			}
			if exists {
				return false, ErrDuplicateTitle
			}
		}
		fields.Title = &title
	}

	label := current.Platform
	if pu.Platform != nil {
		label = strings.TrimSpace(*pu.Platform)
		if _, ok := models.ParsePlatform(label); !ok {
			return false, fmt.Errorf("%w: %q", ErrUnknownPlatform, label)
		}
		fields.Platform = &label
	}

	if pu.Contacts != nil {
		platform, _ := models.ParsePlatform(label)
		var contacts []string
		if platform.UsesRecipients() {
			contacts = snapshotRecipients(*pu.Contacts)
		}
		fields.Contacts = &contacts
	}

	if fields.Empty() {
		return true, nil
	}

	ok, err := s.pr.Update(ctx, nil, id, fields)
	if err != nil {
		return false, postError("error updating post", err)
	}
	if !ok {
		// sent or deleted between the read and the write
		return false, ErrPostSent
	}

	s.invalidate(ctx)
	return true, nil
}

// DeletePost removes the post and every media asset that no other post
// references any more. Files on disk are left to the orphan sweep.
func (s *postService) DeletePost(ctx context.Context, id int64) (bool, error) {
	current, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error getting post: %w", err)
	}
	if current == nil {
		return false, nil
	}
	if current.SentAt != nil {
		return false, ErrPostSent
	}

	var removed bool
	var orphans int64
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		links, err := s.pm.ListByPostID(ctx, tx, id)
		if err != nil {
			return err
		}

		if removed, err = s.pr.Remove(ctx, tx, id); err != nil || !removed {
			return err
		}

		mediaIDs := make([]int64, 0, len(links))
		for _, l := range links {
			mediaIDs = append(mediaIDs, l.MediaID)
		}
		orphans, err = s.ma.RemoveUnreferenced(ctx, tx, mediaIDs)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("error removing post: %w", err)
	}
	if !removed {
		return false, nil
	}

	s.invalidate(ctx)
	slog.Info("post deleted", "post_id", id, "media_removed", orphans)
	return true, nil
}

func (s *postService) SchedulePost(ctx context.Context, id int64, at time.Time) error {
	if !at.After(s.now()) {
		return ErrScheduleInPast
	}
	if err := s.setSchedule(ctx, id, &at); err != nil {
		return err
	}
	s.notify(ctx, id, at)
	return nil
}

func (s *postService) UnschedulePost(ctx context.Context, id int64) error {
	return s.setSchedule(ctx, id, nil)
}

func (s *postService) setSchedule(ctx context.Context, id int64, at *time.Time) error {
	current, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting post: %w", err)
	}
	if current == nil {
		return ErrPostNotFound
	}
	if current.SentAt != nil {
		return ErrPostSent
	}

	ok, err := s.pr.SetSchedule(ctx, nil, id, at)
	if err != nil {
		return fmt.Errorf("error scheduling post: %w", err)
	}
	if !ok {
		return ErrPostSent
	}

	s.invalidate(ctx)
	slog.Info("post schedule changed", "post_id", id, "scheduled", at != nil)
	return nil
}

// LinkMedia replaces the media of a post. Assets that lose their last
// reference are kept so they can be linked again.
func (s *postService) LinkMedia(ctx context.Context, postID int64, mediaIDs []int64) error {
	current, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("error getting post: %w", err)
	}
	if current == nil {
		return ErrPostNotFound
	}
	if current.SentAt != nil {
		return ErrPostSent
	}

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.pm.RemoveByPostID(ctx, tx, postID); err != nil {
			return err
		}
		return s.linkMedia(ctx, tx, postID, mediaIDs)
	})
	if err != nil {
		return postError("error linking media", err)
	}

	s.invalidate(ctx)
	return nil
}

func (s *postService) TitleExists(ctx context.Context, title string) (bool, error) {
	return s.pr.TitleExists(ctx, strings.TrimSpace(title))
}

func (s *postService) GetProgrammedPosts(ctx context.Context) ([]*models.Post, error) {
	return s.GetPostsByState(ctx, models.PostStateScheduled, "")
}

func (s *postService) GetUnprogrammedPosts(ctx context.Context) ([]*models.Post, error) {
	return s.GetPostsByState(ctx, models.PostStateDraft, "")
}

func (s *postService) GetSentPosts(ctx context.Context) ([]*models.Post, error) {
	return s.GetPostsByState(ctx, models.PostStateSent, "")
}

func (s *postService) GetProgrammedPostsByPlatform(ctx context.Context, platform string) ([]*models.Post, error) {
	return s.GetPostsByState(ctx, models.PostStateScheduled, platform)
}

func (s *postService) GetUnprogrammedPostsByPlatform(ctx context.Context, platform string) ([]*models.Post, error) {
	return s.GetPostsByState(ctx, models.PostStateDraft, platform)
}

func (s *postService) GetSentPostsByPlatform(ctx context.Context, platform string) ([]*models.Post, error) {
	return s.GetPostsByState(ctx, models.PostStateSent, platform)
}

// GetPostsByState serves one partition through the read cache.
func (s *postService) GetPostsByState(ctx context.Context, state models.PostState, platform string) ([]*models.Post, error) {
	platform = strings.TrimSpace(platform)
	key := cache.PostViewKey(string(state), platform)
	return readThrough(ctx, s.c, cache.PostViewsSetKey, key, s.ttl, func() ([]*models.Post, error) {
		posts, err := s.pr.ListByState(ctx, state, platform)
		if err != nil {
			return nil, fmt.Errorf("error listing %s posts: %w", state, err)
		}
		return posts, s.attachMedia(ctx, posts)
	})
}

// ListDuePosts reads the store directly. The scheduler must never see a
// cached partition.
func (s *postService) ListDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error) {
	posts, err := s.pr.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("error listing due posts: %w", err)
	}
	return posts, s.attachMedia(ctx, posts)
}

func (s *postService) attachMedia(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	media, err := s.ma.ListByPostIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("error getting post media: %w", err)
	}
	for _, p := range posts {
		if m, ok := media[p.ID]; ok {
			p.MediaAssets = m
		}
	}
	return nil
}

func (s *postService) ClaimForDispatch(ctx context.Context, id int64, now time.Time) (bool, error) {
	return s.pr.Claim(ctx, id, now, now.Add(-s.lease))
}

func (s *postService) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	ok, err := s.pr.MarkSent(ctx, id, at)
	if err != nil {
		return false, fmt.Errorf("error marking post %d as sent: %w", id, err)
	}
	if ok {
		s.invalidate(ctx)
	}
	return ok, nil
}

func (s *postService) ReleaseClaim(ctx context.Context, id int64) error {
	return s.pr.ReleaseClaim(ctx, id)
}

func (s *postService) invalidate(ctx context.Context) {
	invalidate(ctx, s.c, cache.PostViewsSetKey)
}

func (s *postService) notify(ctx context.Context, postID int64, at time.Time) {
	if s.trigger == nil {
		return
	}
	if err := s.trigger.Trigger(ctx, postID, at); err != nil {
		slog.Info(err.Error())
	}
}

func postError(msg string, err error) error {
	switch {
	case errors.Is(err, ErrMediaNotFound):
		return err
	case errors.Is(err, repository.ErrUniqueViolation):
		return ErrDuplicateTitle
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// snapshotRecipients copies the recipients so later contact edits never
// change a stored post.
func snapshotRecipients(in []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range in {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
