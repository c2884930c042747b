package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/stretchr/testify/require"
)

var postRowColumns = []string{
	"id", "title", "content", "content_html", "asunto", "platform", "contacts",
	"fecha_hora", "sent_at", "dispatch_started_at", "created_at", "updated_at",
}

func TestMediaAssetRepository_UpsertReturnsExistingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMediaAssetRepository(db)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (file_path) DO UPDATE SET file_path = EXCLUDED.file_path`)).
			WithArgs("media/a.png", models.MediaTypeImage, "a.png").
			WillReturnRows(sqlmock.NewRows([]string{"id", "file_path", "file_type", "original_filename", "created_at"}).
				AddRow(7, "media/a.png", "image", "a.png", created))
	}

	in := &models.MediaAsset{FilePath: "media/a.png", FileType: models.MediaTypeImage, OriginalFilename: "a.png"}
	first, err := repo.Upsert(context.Background(), nil, in)
	require.NoError(t, err)
	second, err := repo.Upsert(context.Background(), nil, in)
	require.NoError(t, err)

	require.Equal(t, int64(7), first.ID)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, models.MediaTypeImage, second.FileType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaAssetRepository_RemoveUnreferenced(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`NOT EXISTS (SELECT 1 FROM post_media_association pm WHERE pm.media_id = m.id)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := NewMediaAssetRepository(db).RemoveUnreferenced(context.Background(), nil, []int64{1, 2})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = NewMediaAssetRepository(db).RemoveUnreferenced(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaAssetRepository_ListUnsentPostIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE pm.media_id = $1 AND p.sent_at IS NULL`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(9))

	ids, err := NewMediaAssetRepository(db).ListUnsentPostIDs(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 9}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListByStateQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM posts WHERE fecha_hora IS NOT NULL AND sent_at IS NULL ORDER BY fecha_hora ASC`).
		WillReturnRows(sqlmock.NewRows(postRowColumns).
			AddRow(1, "Launch", "body", nil, nil, "LinkedIn", nil, at, nil, nil, at, at))
	mock.ExpectQuery(`FROM posts WHERE fecha_hora IS NULL AND sent_at IS NULL AND platform = \$1 ORDER BY updated_at DESC`).
		WithArgs("Gmail").
		WillReturnRows(sqlmock.NewRows(postRowColumns).
			AddRow(2, "Mail", "body", "<p>body</p>", "Hello", "Gmail", `["a@x.com","b@x.com"]`, nil, nil, nil, at, at))
	mock.ExpectQuery(`FROM posts WHERE sent_at IS NOT NULL ORDER BY sent_at DESC`).
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	scheduled, err := repo.ListByState(context.Background(), models.PostStateScheduled, "")
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	require.Equal(t, models.PostStateScheduled, scheduled[0].State())
	require.Empty(t, scheduled[0].Contacts)
	require.Nil(t, scheduled[0].ContentHTML)

	drafts, err := repo.ListByState(context.Background(), models.PostStateDraft, "Gmail")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, []string{"a@x.com", "b@x.com"}, drafts[0].Contacts)
	require.Equal(t, "Hello", *drafts[0].Subject)
	require.Equal(t, models.PostStateDraft, drafts[0].State())

	sent, err := repo.ListByState(context.Background(), models.PostStateSent, "")
	require.NoError(t, err)
	require.Empty(t, sent)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ClaimAndMarkSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	now := time.Now()
	stale := now.Add(-10 * time.Minute)

	mock.ExpectExec(`UPDATE posts\s+SET dispatch_started_at = \$2`).
		WithArgs(int64(5), now, stale).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE posts\s+SET dispatch_started_at = \$2`).
		WithArgs(int64(5), now, stale).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET sent_at = \$2`).
		WithArgs(int64(5), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Claim(context.Background(), 5, now, stale)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Claim(context.Background(), 5, now, stale)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.MarkSent(context.Background(), 5, now)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateBuildsPartialSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	content := "new body"
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET content = $1, updated_at = NOW() WHERE id = $2 AND sent_at IS NULL`)).
		WithArgs(content, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := NewPostRepository(db).Update(context.Background(), nil, 3, PostFields{Content: &content})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO posts`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "posts_title_key"})

	_, err = NewPostRepository(db).Create(context.Background(), nil, &models.Post{Title: "dup", Platform: "Gmail"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUniqueViolation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository_ExistsWithMethods(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`phone IS NOT DISTINCT FROM \$1`).
		WithArgs(`["+34600111222"]`, nil, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectQuery(`phone IS NOT DISTINCT FROM \$1`).
		WithArgs(nil, `["a@x.com"]`, int64(4)).
		WillReturnError(sql.ErrNoRows)

	repo := NewContactRepository(db)
	exists, err := repo.ExistsWithMethods(context.Background(), nil, []string{"+34600111222"}, nil, 0)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.ExistsWithMethods(context.Background(), nil, nil, []string{"a@x.com"}, 4)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository_ListAttachesMemberships(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT c.id, c.name, c.phone, c.email, c.created_at FROM contacts c ORDER BY c.name ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "email", "created_at"}).
			AddRow(1, "Ana", `["+34600111222"]`, nil, created).
			AddRow(2, "Luis", nil, `["luis@x.com"]`, created))
	mock.ExpectQuery(`FROM contact_list_association a`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id", "id", "name"}).AddRow(2, 9, "Clients"))

	contacts, err := NewContactRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	require.Equal(t, []string{"+34600111222"}, contacts[0].Phones)
	require.Empty(t, contacts[0].Emails)
	require.Empty(t, contacts[0].Lists)
	require.Len(t, contacts[1].Lists, 1)
	require.Equal(t, "Clients", contacts[1].Lists[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM posts`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err = NewTransactor(db).WithinTx(context.Background(), func(tx *sql.Tx) error {
		_, err := NewPostRepository(db).Remove(context.Background(), tx, 1)
		return err
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_Commits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM post_media_association`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = NewTransactor(db).WithinTx(context.Background(), func(tx *sql.Tx) error {
		return NewPostMediaRepository(db).RemoveByPostID(context.Background(), tx, 1)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEncodeSetCanonical(t *testing.T) {
	ns := encodeSet([]string{"b", "a", "b"})
	require.True(t, ns.Valid)
	require.Equal(t, `["a","b"]`, ns.String)
	require.False(t, encodeSet(nil).Valid)

	decoded, err := decodeSet(ns)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, decoded)
}
