package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/contentflow/internal/models"
)

type ApiKeyRepository interface {
	Create(ctx context.Context, key *models.ApiKey) (int64, error)
	GetByHash(ctx context.Context, hash string) (*models.ApiKey, error)
	List(ctx context.Context) ([]*models.ApiKey, error)
	Count(ctx context.Context) (int, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	Remove(ctx context.Context, id int64) (bool, error)
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

const apiKeyColumns = `id, label, prefix, key_hash, last_used_at, created_at`

func scanApiKey(row interface{ Scan(...any) error }, k *models.ApiKey) error {
	return row.Scan(&k.ID, &k.Label, &k.Prefix, &k.KeyHash, &k.LastUsed, &k.CreatedAt)
}

func (r *apiKeyRepository) Create(ctx context.Context, key *models.ApiKey) (int64, error) {
	query := "INSERT INTO api_keys (label, prefix, key_hash) VALUES ($1, $2, $3) RETURNING id"
	var id int64
	err := r.db.QueryRowContext(ctx, query, key.Label, key.Prefix, key.KeyHash).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translateError(err)
	}
	return id, nil
}

func (r *apiKeyRepository) GetByHash(ctx context.Context, hash string) (*models.ApiKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`

	var k models.ApiKey
	if err := scanApiKey(r.db.QueryRowContext(ctx, query, hash), &k); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &k, nil
}

func (r *apiKeyRepository) List(ctx context.Context) ([]*models.ApiKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	keys := []*models.ApiKey{}
	for rows.Next() {
		var k models.ApiKey
		if err := scanApiKey(rows, &k); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (r *apiKeyRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&n); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

func (r *apiKeyRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *apiKeyRepository) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res)
}
