package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/contentflow/internal/models"
)

type PostMediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error
	ListByPostID(ctx context.Context, tx *sql.Tx, postID int64) ([]*models.PostMedia, error)
	RemoveByPostID(ctx context.Context, tx *sql.Tx, postID int64) error
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

func (r *postMediaRepository) Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error {
	query := `
		INSERT INTO post_media_association (post_id, media_id, position)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, media_id) DO UPDATE SET position = EXCLUDED.position
	`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, pm.PostID, pm.MediaID, pm.Position); err != nil {
		slog.Info(err.Error())
		return translateError(err)
	}
	return nil
}

func (r *postMediaRepository) ListByPostID(ctx context.Context, tx *sql.Tx, postID int64) ([]*models.PostMedia, error) {
	query := `
		SELECT post_id, media_id, position
		FROM post_media_association
		WHERE post_id = $1
		ORDER BY position
	`

	rows, err := conn(r.db, tx).QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var postMedias []*models.PostMedia
	for rows.Next() {
		var pm models.PostMedia
		if err := rows.Scan(&pm.PostID, &pm.MediaID, &pm.Position); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		postMedias = append(postMedias, &pm)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return postMedias, nil
}

func (r *postMediaRepository) RemoveByPostID(ctx context.Context, tx *sql.Tx, postID int64) error {
	if _, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM post_media_association WHERE post_id = $1`, postID); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
