package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/maheshrc27/contentflow/internal/models"
)

// PostFields carries a partial update. Nil fields are left untouched.
type PostFields struct {
	Title       *string
	Content     *string
	ContentHTML *string
	Subject     *string
	Platform    *string
	Contacts    *[]string
}

func (f PostFields) Empty() bool {
	return f.Title == nil && f.Content == nil && f.ContentHTML == nil &&
		f.Subject == nil && f.Platform == nil && f.Contacts == nil
}

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Update(ctx context.Context, tx *sql.Tx, id int64, fields PostFields) (bool, error)
	SetSchedule(ctx context.Context, tx *sql.Tx, id int64, at *time.Time) (bool, error)
	Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	ListByState(ctx context.Context, state models.PostState, platform string) ([]*models.Post, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	Claim(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	MarkSent(ctx context.Context, id int64, at time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

var postColumns = []string{
	"id", "title", "content", "content_html", "asunto", "platform", "contacts",
	"fecha_hora", "sent_at", "dispatch_started_at", "created_at", "updated_at",
}

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var (
		post     models.Post
		contacts sql.NullString
	)
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.ContentHTML,
		&post.Subject,
		&post.Platform,
		&contacts,
		&post.ScheduledAt,
		&post.SentAt,
		&post.DispatchStartedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if post.Contacts, err = decodeSet(contacts); err != nil {
		return nil, fmt.Errorf("decode contacts of post %d: %w", post.ID, err)
	}
	post.MediaAssets = []*models.MediaAsset{}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (title, content, content_html, asunto, platform, contacts, fecha_hora)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		post.Title, post.Content, post.ContentHTML, post.Subject, post.Platform, encodeSet(post.Contacts), post.ScheduledAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translateError(err)
	}
	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query, args, err := psql.Select(postColumns...).From("posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build post select: %w", err)
	}

	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

// Update applies the non-nil fields to a post that has not been sent.
func (r *postRepository) Update(ctx context.Context, tx *sql.Tx, id int64, fields PostFields) (bool, error) {
	set := map[string]any{"updated_at": sq.Expr("NOW()")}
	if fields.Title != nil {
		set["title"] = *fields.Title
	}
	if fields.Content != nil {
		set["content"] = *fields.Content
	}
	if fields.ContentHTML != nil {
		set["content_html"] = nullable(*fields.ContentHTML)
	}
	if fields.Subject != nil {
		set["asunto"] = nullable(*fields.Subject)
	}
	if fields.Platform != nil {
		set["platform"] = *fields.Platform
	}
	if fields.Contacts != nil {
		set["contacts"] = encodeSet(*fields.Contacts)
	}

	query, args, err := psql.Update("posts").
		SetMap(set).
		Where(sq.Eq{"id": id, "sent_at": nil}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build post update: %w", err)
	}

	res, err := conn(r.db, tx).ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return false, translateError(err)
	}
	return affected(res)
}

// SetSchedule sets or clears fecha_hora. Sent posts are never touched.
func (r *postRepository) SetSchedule(ctx context.Context, tx *sql.Tx, id int64, at *time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET fecha_hora = $1,
			dispatch_started_at = NULL,
			updated_at = NOW()
		WHERE id = $2 AND sent_at IS NULL
	`
	res, err := conn(r.db, tx).ExecContext(ctx, query, at, id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res)
}

func (r *postRepository) Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM posts WHERE id = $1 AND sent_at IS NULL`, id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res)
}

func (r *postRepository) TitleExists(ctx context.Context, title string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE title = $1 LIMIT 1`, title).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return true, nil
}

// ListByState returns one partition of the posts table, optionally narrowed
// to a platform label.
func (r *postRepository) ListByState(ctx context.Context, state models.PostState, platform string) ([]*models.Post, error) {
	q := psql.Select(postColumns...).From("posts")

	switch state {
	case models.PostStateScheduled:
		q = q.Where("fecha_hora IS NOT NULL AND sent_at IS NULL").OrderBy("fecha_hora ASC", "id ASC")
	case models.PostStateDraft:
		q = q.Where("fecha_hora IS NULL AND sent_at IS NULL").OrderBy("updated_at DESC", "id DESC")
	case models.PostStateSent:
		q = q.Where("sent_at IS NOT NULL").OrderBy("sent_at DESC", "id DESC")
	default:
		return nil, fmt.Errorf("unknown post state %q", state)
	}
	if platform != "" {
		q = q.Where(sq.Eq{"platform": platform})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build posts select: %w", err)
	}
	return r.query(ctx, query, args...)
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query, args, err := psql.Select(postColumns...).
		From("posts").
		Where("fecha_hora IS NOT NULL AND sent_at IS NULL").
		Where(sq.LtOrEq{"fecha_hora": now}).
		OrderBy("fecha_hora ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due posts select: %w", err)
	}
	return r.query(ctx, query, args...)
}

func (r *postRepository) query(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Claim marks a due post as being dispatched. It fails when the post was sent,
// unscheduled, rescheduled into the future or is held by a live claim.
func (r *postRepository) Claim(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET dispatch_started_at = $2
		WHERE id = $1
		  AND sent_at IS NULL
		  AND fecha_hora IS NOT NULL
		  AND fecha_hora <= $2
		  AND (dispatch_started_at IS NULL OR dispatch_started_at < $3)
	`
	res, err := r.db.ExecContext(ctx, query, id, now, staleBefore)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res)
}

func (r *postRepository) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET sent_at = $2,
			dispatch_started_at = NULL,
			updated_at = $2
		WHERE id = $1 AND sent_at IS NULL AND fecha_hora IS NOT NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res)
}

func (r *postRepository) ReleaseClaim(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET dispatch_started_at = NULL WHERE id = $1 AND sent_at IS NULL`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
