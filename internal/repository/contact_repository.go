package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/maheshrc27/contentflow/internal/models"
)

type ContactRepository interface {
	Create(ctx context.Context, tx *sql.Tx, c *models.Contact) (int64, error)
	Update(ctx context.Context, tx *sql.Tx, c *models.Contact) (bool, error)
	Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Contact, error)
	List(ctx context.Context) ([]*models.Contact, error)
	ListByList(ctx context.Context, listID int64) ([]*models.Contact, error)
	ListByLists(ctx context.Context, listIDs []int64) ([]*models.Contact, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*models.Contact, error)
	ExistsWithMethods(ctx context.Context, tx *sql.Tx, phones, emails []string, excludeID int64) (bool, error)
	SetLists(ctx context.Context, tx *sql.Tx, contactID int64, listIDs []int64) error
}

type contactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, tx *sql.Tx, c *models.Contact) (int64, error) {
	query := `
		INSERT INTO contacts (name, phone, email)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query, c.Name, encodeSet(c.Phones), encodeSet(c.Emails)).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translateError(err)
	}
	return id, nil
}

func (r *contactRepository) Update(ctx context.Context, tx *sql.Tx, c *models.Contact) (bool, error) {
	query := `
		UPDATE contacts
		SET name = $1,
			phone = $2,
			email = $3
		WHERE id = $4
	`
	res, err := conn(r.db, tx).ExecContext(ctx, query, c.Name, encodeSet(c.Phones), encodeSet(c.Emails), c.ID)
	if err != nil {
		slog.Info(err.Error())
		return false, translateError(err)
	}
	return affected(res)
}

func (r *contactRepository) Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res)
}

func (r *contactRepository) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	contacts, err := r.find(ctx, sq.Eq{"c.id": id})
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return contacts[0], nil
}

func (r *contactRepository) List(ctx context.Context) ([]*models.Contact, error) {
	return r.find(ctx, nil)
}

func (r *contactRepository) ListByList(ctx context.Context, listID int64) ([]*models.Contact, error) {
	return r.ListByLists(ctx, []int64{listID})
}

func (r *contactRepository) ListByLists(ctx context.Context, listIDs []int64) ([]*models.Contact, error) {
	if len(listIDs) == 0 {
		return []*models.Contact{}, nil
	}
	return r.find(ctx, sq.Expr("c.id IN (SELECT contact_id FROM contact_list_association WHERE list_id = ANY(?))", pq.Array(listIDs)))
}

func (r *contactRepository) ListByIDs(ctx context.Context, ids []int64) ([]*models.Contact, error) {
	if len(ids) == 0 {
		return []*models.Contact{}, nil
	}
	return r.find(ctx, sq.Eq{"c.id": ids})
}

func (r *contactRepository) find(ctx context.Context, where sq.Sqlizer) ([]*models.Contact, error) {
	q := psql.
		Select("c.id", "c.name", "c.phone", "c.email", "c.created_at").
		From("contacts c").
		OrderBy("c.name ASC", "c.id ASC")
	if where != nil {
		q = q.Where(where)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contacts select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	contacts := []*models.Contact{}
	byID := map[int64]*models.Contact{}
	for rows.Next() {
		var (
			c      models.Contact
			phones sql.NullString
			emails sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &phones, &emails, &c.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if c.Phones, err = decodeSet(phones); err != nil {
			return nil, fmt.Errorf("decode phones of contact %d: %w", c.ID, err)
		}
		if c.Emails, err = decodeSet(emails); err != nil {
			return nil, fmt.Errorf("decode emails of contact %d: %w", c.ID, err)
		}
		c.Lists = []*models.ContactListRef{}
		contacts = append(contacts, &c)
		byID[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if len(contacts) == 0 {
		return contacts, nil
	}
	if err := r.attachLists(ctx, byID); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) attachLists(ctx context.Context, byID map[int64]*models.Contact) error {
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query := `
		SELECT a.contact_id, l.id, l.name
		FROM contact_list_association a
		JOIN contact_lists l ON l.id = a.list_id
		WHERE a.contact_id = ANY($1)
		ORDER BY l.name
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var contactID int64
		var ref models.ContactListRef
		if err := rows.Scan(&contactID, &ref.ID, &ref.Name); err != nil {
			slog.Info(err.Error())
			return err
		}
		if c, ok := byID[contactID]; ok {
			c.Lists = append(c.Lists, &ref)
		}
	}
	return rows.Err()
}

// ExistsWithMethods looks for another contact with exactly the same phone and
// email sets. Both sets are compared in their canonical encoding.
func (r *contactRepository) ExistsWithMethods(ctx context.Context, tx *sql.Tx, phones, emails []string, excludeID int64) (bool, error) {
	query := `
		SELECT 1 FROM contacts
		WHERE phone IS NOT DISTINCT FROM $1
		  AND email IS NOT DISTINCT FROM $2
		  AND id <> $3
		LIMIT 1
	`
	var one int
	err := conn(r.db, tx).QueryRowContext(ctx, query, encodeSet(phones), encodeSet(emails), excludeID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return true, nil
}

// SetLists replaces the contact's list memberships. Unknown list ids are ignored.
func (r *contactRepository) SetLists(ctx context.Context, tx *sql.Tx, contactID int64, listIDs []int64) error {
	q := conn(r.db, tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM contact_list_association WHERE contact_id = $1`, contactID); err != nil {
		slog.Info(err.Error())
		return err
	}
	if len(listIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO contact_list_association (contact_id, list_id)
		SELECT $1, id FROM contact_lists WHERE id = ANY($2)
		ON CONFLICT DO NOTHING
	`
	if _, err := q.ExecContext(ctx, query, contactID, pq.Array(listIDs)); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
