package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/contentflow/internal/models"
)

type ContactListRepository interface {
	Create(ctx context.Context, tx *sql.Tx, name string) (int64, error)
	GetByName(ctx context.Context, name string) (*models.ContactList, error)
	List(ctx context.Context) ([]*models.ContactList, error)
	Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	AddContacts(ctx context.Context, tx *sql.Tx, listID int64, contactIDs []int64) error
}

type contactListRepository struct {
	db *sql.DB
}

func NewContactListRepository(db *sql.DB) ContactListRepository {
	return &contactListRepository{db: db}
}

func (r *contactListRepository) Create(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, `INSERT INTO contact_lists (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translateError(err)
	}
	return id, nil
}

func (r *contactListRepository) GetByName(ctx context.Context, name string) (*models.ContactList, error) {
	query := `SELECT id, name, created_at FROM contact_lists WHERE name = $1`

	var l models.ContactList
	err := r.db.QueryRowContext(ctx, query, name).Scan(&l.ID, &l.Name, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &l, nil
}

func (r *contactListRepository) List(ctx context.Context) ([]*models.ContactList, error) {
	query := `
		SELECT l.id, l.name, l.created_at, COUNT(a.contact_id)
		FROM contact_lists l
		LEFT JOIN contact_list_association a ON a.list_id = l.id
		GROUP BY l.id, l.name, l.created_at
		ORDER BY l.name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	lists := []*models.ContactList{}
	for rows.Next() {
		var l models.ContactList
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt, &l.ContactCount); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		lists = append(lists, &l)
	}
	return lists, rows.Err()
}

// Remove deletes the list. Memberships cascade, contacts are kept.
func (r *contactListRepository) Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM contact_lists WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res)
}

func (r *contactListRepository) AddContacts(ctx context.Context, tx *sql.Tx, listID int64, contactIDs []int64) error {
	if len(contactIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO contact_list_association (contact_id, list_id)
		SELECT id, $1 FROM contacts WHERE id = ANY($2)
		ON CONFLICT DO NOTHING
	`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, listID, pq.Array(contactIDs)); err != nil {
		slog.Info(err.Error())
		return translateError(err)
	}
	return nil
}
