package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/contentflow/internal/models"
)

type PostingHistoryRepository interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error)
}

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := `
		INSERT INTO posting_history (post_id, platform, success, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, ph.PostID, ph.Platform, ph.Success, ph.ErrorMessage, ph.DurationMS).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translateError(err)
	}

	return id, nil
}

func (r *postingHistoryRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	query := `
		SELECT id, post_id, platform, success, error_message, duration_ms, created_at
		FROM posting_history
		WHERE post_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	phs := []*models.PostingHistory{}
	for rows.Next() {
		var ph models.PostingHistory
		err := rows.Scan(&ph.ID, &ph.PostID, &ph.Platform, &ph.Success, &ph.ErrorMessage, &ph.DurationMS, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		phs = append(phs, &ph)
	}
	return phs, rows.Err()
}
