package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/contentflow/internal/models"
)

type MediaAssetRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (*models.MediaAsset, error)
	GetByID(ctx context.Context, id int64) (*models.MediaAsset, error)
	List(ctx context.Context) ([]*models.MediaAsset, error)
	ListByPostID(ctx context.Context, tx *sql.Tx, postID int64) ([]*models.MediaAsset, error)
	ListByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]*models.MediaAsset, error)
	Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	RemoveUnreferenced(ctx context.Context, tx *sql.Tx, ids []int64) (int64, error)
	ListUnsentPostIDs(ctx context.Context, mediaID int64) ([]int64, error)
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

const mediaColumns = `id, file_path, file_type, original_filename, created_at`

func scanMedia(row interface{ Scan(...any) error }, ma *models.MediaAsset) error {
	return row.Scan(&ma.ID, &ma.FilePath, &ma.FileType, &ma.OriginalFilename, &ma.CreatedAt)
}

// Upsert registers a file path. Registering a path that already exists
// returns the stored row untouched.
func (r *mediaAssetRepository) Upsert(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (*models.MediaAsset, error) {
	query := `
		INSERT INTO media_assets (file_path, file_type, original_filename)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_path) DO UPDATE SET file_path = EXCLUDED.file_path
		RETURNING ` + mediaColumns

	var out models.MediaAsset
	err := scanMedia(conn(r.db, tx).QueryRowContext(ctx, query, ma.FilePath, ma.FileType, ma.OriginalFilename), &out)
	if err != nil {
		slog.Info(err.Error())
		return nil, translateError(err)
	}
	return &out, nil
}

func (r *mediaAssetRepository) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_assets WHERE id = $1`

	var ma models.MediaAsset
	if err := scanMedia(r.db.QueryRowContext(ctx, query, id), &ma); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &ma, nil
}

func (r *mediaAssetRepository) List(ctx context.Context) ([]*models.MediaAsset, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_assets ORDER BY created_at DESC, id DESC`
	return r.query(ctx, r.db, query)
}

func (r *mediaAssetRepository) ListByPostID(ctx context.Context, tx *sql.Tx, postID int64) ([]*models.MediaAsset, error) {
	query := `
		SELECT m.id, m.file_path, m.file_type, m.original_filename, m.created_at
		FROM media_assets m
		JOIN post_media_association pm ON pm.media_id = m.id
		WHERE pm.post_id = $1
		ORDER BY pm.position, m.id
	`
	return r.query(ctx, conn(r.db, tx), query, postID)
}

func (r *mediaAssetRepository) ListByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]*models.MediaAsset, error) {
	out := make(map[int64][]*models.MediaAsset, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT pm.post_id, m.id, m.file_path, m.file_type, m.original_filename, m.created_at
		FROM media_assets m
		JOIN post_media_association pm ON pm.media_id = m.id
		WHERE pm.post_id = ANY($1)
		ORDER BY pm.post_id, pm.position, m.id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(postIDs))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		var ma models.MediaAsset
		if err := rows.Scan(&postID, &ma.ID, &ma.FilePath, &ma.FileType, &ma.OriginalFilename, &ma.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		out[postID] = append(out[postID], &ma)
	}
	return out, rows.Err()
}

func (r *mediaAssetRepository) query(ctx context.Context, q querier, query string, args ...any) ([]*models.MediaAsset, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	assets := []*models.MediaAsset{}
	for rows.Next() {
		var ma models.MediaAsset
		if err := scanMedia(rows, &ma); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		assets = append(assets, &ma)
	}
	return assets, rows.Err()
}

func (r *mediaAssetRepository) Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM media_assets WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res)
}

// RemoveUnreferenced deletes the given assets that no post links to anymore.
func (r *mediaAssetRepository) RemoveUnreferenced(ctx context.Context, tx *sql.Tx, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		DELETE FROM media_assets m
		WHERE m.id = ANY($1)
		  AND NOT EXISTS (SELECT 1 FROM post_media_association pm WHERE pm.media_id = m.id)
	`
	res, err := conn(r.db, tx).ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}

// ListUnsentPostIDs returns the draft or scheduled posts that link to the asset.
func (r *mediaAssetRepository) ListUnsentPostIDs(ctx context.Context, mediaID int64) ([]int64, error) {
	query := `
		SELECT p.id
		FROM post_media_association pm
		JOIN posts p ON p.id = pm.post_id
		WHERE pm.media_id = $1 AND p.sent_at IS NULL
		ORDER BY p.id
	`
	rows, err := r.db.QueryContext(ctx, query, mediaID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
