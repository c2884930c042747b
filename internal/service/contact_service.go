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
	"github.com/maheshrc27/contentflow/internal/validation"
)

const (
	msgNameRequired    = "Name is required"
	msgNoSendable      = "Contact requires at least one email or mobile phone"
	msgDuplicate       = "A contact with the same phones and emails already exists"
	msgContactSaved    = "Contact saved successfully"
	msgContactError    = "Error saving contact"
	msgListNameMissing = "List name is required"
	msgListExists      = "A list with this name already exists"
	msgListCreated     = "List created successfully"
)

type RecipientKind string

const (
	RecipientEmail RecipientKind = "email"
	RecipientPhone RecipientKind = "phone"
)

type ContactService interface {
	CreateContact(ctx context.Context, in *transfer.ContactInput) transfer.Result
	UpdateContact(ctx context.Context, id int64, in *transfer.ContactInput) transfer.Result
	BulkCreateContacts(ctx context.Context, rows []*transfer.ContactInput) transfer.BulkResult
	DeleteContact(ctx context.Context, id int64) (bool, error)
	GetContact(ctx context.Context, id int64) (*models.Contact, error)
	ListContacts(ctx context.Context) ([]*models.Contact, error)
	ListContactsByList(ctx context.Context, listID int64) ([]*models.Contact, error)

	CreateContactList(ctx context.Context, name string) transfer.Result
	DeleteContactList(ctx context.Context, id int64) (bool, error)
	ListContactLists(ctx context.Context) ([]*models.ContactList, error)
	AddContactsToList(ctx context.Context, listID int64, contactIDs []int64) error

	ResolveRecipients(ctx context.Context, kind RecipientKind, listIDs, contactIDs []int64) ([]string, error)
}

type contactService struct {
	tx  repository.Transactor
	cr  repository.ContactRepository
	lr  repository.ContactListRepository
	c   cache.Cache
	ttl time.Duration
}

func NewContactService(
	tx repository.Transactor,
	cr repository.ContactRepository,
	lr repository.ContactListRepository,
	c cache.Cache,
	ttl time.Duration) ContactService {
	return &contactService{
		tx:  tx,
		cr:  cr,
		lr:  lr,
		c:   c,
		ttl: ttl,
	}
}

type normalizedContact struct {
	name    string
	phones  []string
	emails  []string
	listIDs []int64
}

func (n *normalizedContact) signature() string {
	return validation.Signature(n.phones, n.emails)
}

func (n *normalizedContact) model() *models.Contact {
	return &models.Contact{Name: n.name, Phones: n.phones, Emails: n.emails}
}

// normalizeContact applies the contact rules and returns the operator-facing
// message of the first rule that fails.
func normalizeContact(in *transfer.ContactInput) (*normalizedContact, string) {
	if in == nil {
		return nil, msgNameRequired
	}

	n := &normalizedContact{
		name:    strings.TrimSpace(in.Name),
		phones:  validation.SendablePhones(in.Phones),
		emails:  validation.NormalizeEmails(in.Emails),
		listIDs: in.ListIDs,
	}
	if n.name == "" {
		return nil, msgNameRequired
	}
	for _, e := range n.emails {
		if !validation.ValidEmail(e) {
			return nil, fmt.Sprintf("Invalid email address: %s", e)
		}
	}
	for _, p := range n.phones {
		if !validation.ValidPhone(p) {
			return nil, fmt.Sprintf("Invalid phone number: %s", p)
		}
	}
	if len(n.phones) == 0 && len(n.emails) == 0 {
		return nil, msgNoSendable
	}
	return n, ""
}

func (s *contactService) CreateContact(ctx context.Context, in *transfer.ContactInput) transfer.Result {
	n, msg := normalizeContact(in)
	if n == nil {
		return transfer.Result{Success: false, Message: msg}
	}

	var id int64
	var duplicate bool
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		exists, err := s.cr.ExistsWithMethods(ctx, tx, n.phones, n.emails, 0)
		if err != nil {
			return err
		}
		if exists {
			duplicate = true
			return nil
		}

		if id, err = s.cr.Create(ctx, tx, n.model()); err != nil {
			return err
		}
		return s.cr.SetLists(ctx, tx, id, n.listIDs)
	})
	if err != nil {
		slog.Info(err.Error())
		return transfer.Result{Success: false, Message: msgContactError}
	}
	if duplicate {
		return transfer.Result{Success: false, Message: msgDuplicate}
	}

	invalidate(ctx, s.c, cache.ContactViewsSetKey)
	slog.Info("contact created", "contact_id", id)
	return transfer.Result{Success: true, Message: msgContactSaved, ID: id}
}

// UpdateContact replaces the contact's data and list memberships.
func (s *contactService) UpdateContact(ctx context.Context, id int64, in *transfer.ContactInput) transfer.Result {
	n, msg := normalizeContact(in)
	if n == nil {
		return transfer.Result{Success: false, Message: msg}
	}

	var duplicate, missing bool
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		exists, err := s.cr.ExistsWithMethods(ctx, tx, n.phones, n.emails, id)
		if err != nil {
			return err
		}
		if exists {
			duplicate = true
			return nil
		}

		c := n.model()
		c.ID = id
		ok, err := s.cr.Update(ctx, tx, c)
		if err != nil {
			return err
		}
		if !ok {
			missing = true
			return nil
		}
		return s.cr.SetLists(ctx, tx, id, n.listIDs)
	})
	switch {
	case err != nil:
		slog.Info(err.Error())
		return transfer.Result{Success: false, Message: msgContactError}
	case duplicate:
		return transfer.Result{Success: false, Message: msgDuplicate}
	case missing:
		return transfer.Result{Success: false, Message: "Contact not found"}
	}

	invalidate(ctx, s.c, cache.ContactViewsSetKey)
	return transfer.Result{Success: true, Message: msgContactSaved, ID: id}
}

// BulkCreateContacts validates every row on its own. Rows are numbered from 2
// because row 1 of the source sheet is its header.
func (s *contactService) BulkCreateContacts(ctx context.Context, rows []*transfer.ContactInput) transfer.BulkResult {
	result := transfer.BulkResult{Errors: []string{}}

	existing := map[string]struct{}{}
	contacts, err := s.cr.List(ctx)
	if err != nil {
		slog.Info(err.Error())
		result.Errors = append(result.Errors, "Unable to read existing contacts")
		return result
	}
	for _, c := range contacts {
		existing[validation.Signature(c.Phones, c.Emails)] = struct{}{}
	}

	seenInFile := map[string]struct{}{}
	for i, row := range rows {
		rowNum := i + 2

		n, msg := normalizeContact(row)
		if n == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rowNum, msg))
			continue
		}

		sig := n.signature()
		if _, ok := seenInFile[sig]; ok {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: duplicated in file", rowNum))
			continue
		}
		seenInFile[sig] = struct{}{}

		if _, ok := existing[sig]; ok {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: contact already exists", rowNum))
			continue
		}

		err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
			id, err := s.cr.Create(ctx, tx, n.model())
			if err != nil {
				return err
			}
			return s.cr.SetLists(ctx, tx, id, n.listIDs)
		})
		if err != nil {
			slog.Info(err.Error())
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rowNum, msgContactError))
			continue
		}

		existing[sig] = struct{}{}
		result.Added++
	}

	if result.Added > 0 {
		invalidate(ctx, s.c, cache.ContactViewsSetKey)
	}
	slog.Info("bulk contact import finished", "added", result.Added, "errors", len(result.Errors))
	return result
}

func (s *contactService) DeleteContact(ctx context.Context, id int64) (bool, error) {
	ok, err := s.cr.Remove(ctx, nil, id)
	if err != nil {
		return false, fmt.Errorf("error removing contact: %w", err)
	}
	if ok {
		invalidate(ctx, s.c, cache.ContactViewsSetKey)
	}
	return ok, nil
}

func (s *contactService) GetContact(ctx context.Context, id int64) (*models.Contact, error) {
	return s.cr.GetByID(ctx, id)
}

func (s *contactService) ListContacts(ctx context.Context) ([]*models.Contact, error) {
	return readThrough(ctx, s.c, cache.ContactViewsSetKey, cache.ContactsKey(), s.ttl, func() ([]*models.Contact, error) {
		return s.cr.List(ctx)
	})
}

func (s *contactService) ListContactsByList(ctx context.Context, listID int64) ([]*models.Contact, error) {
	return readThrough(ctx, s.c, cache.ContactViewsSetKey, cache.ContactsByListKey(listID), s.ttl, func() ([]*models.Contact, error) {
		return s.cr.ListByList(ctx, listID)
	})
}

func (s *contactService) CreateContactList(ctx context.Context, name string) transfer.Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return transfer.Result{Success: false, Message: msgListNameMissing}
	}

	existing, err := s.lr.GetByName(ctx, name)
	if err != nil {
		return transfer.Result{Success: false, Message: "Error creating list"}
	}
	if existing != nil {
		return transfer.Result{Success: false, Message: msgListExists}
	}

	id, err := s.lr.Create(ctx, nil, name)
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return transfer.Result{Success: false, Message: msgListExists}
		}
		return transfer.Result{Success: false, Message: "Error creating list"}
	}

	invalidate(ctx, s.c, cache.ContactViewsSetKey)
	return transfer.Result{Success: true, Message: msgListCreated, ID: id}
}

// DeleteContactList removes the list and its memberships. Contacts stay.
func (s *contactService) DeleteContactList(ctx context.Context, id int64) (bool, error) {
	ok, err := s.lr.Remove(ctx, nil, id)
	if err != nil {
		return false, fmt.Errorf("error removing list: %w", err)
	}
	if ok {
		invalidate(ctx, s.c, cache.ContactViewsSetKey)
	}
	return ok, nil
}

func (s *contactService) ListContactLists(ctx context.Context) ([]*models.ContactList, error) {
	return readThrough(ctx, s.c, cache.ContactViewsSetKey, cache.ContactListsKey(), s.ttl, func() ([]*models.ContactList, error) {
		return s.lr.List(ctx)
	})
}

func (s *contactService) AddContactsToList(ctx context.Context, listID int64, contactIDs []int64) error {
	if err := s.lr.AddContacts(ctx, nil, listID, contactIDs); err != nil {
		return fmt.Errorf("error adding contacts to list: %w", err)
	}
	invalidate(ctx, s.c, cache.ContactViewsSetKey)
	return nil
}

// ResolveRecipients returns the emails or phones of every contact in the
// given lists plus the individually selected contacts, sorted and unique.
func (s *contactService) ResolveRecipients(ctx context.Context, kind RecipientKind, listIDs, contactIDs []int64) ([]string, error) {
	if kind != RecipientEmail && kind != RecipientPhone {
		return nil, fmt.Errorf("unknown recipient kind %q", kind)
	}

	fromLists, err := s.cr.ListByLists(ctx, listIDs)
	if err != nil {
		return nil, fmt.Errorf("error resolving list recipients: %w", err)
	}
	selected, err := s.cr.ListByIDs(ctx, contactIDs)
	if err != nil {
		return nil, fmt.Errorf("error resolving selected recipients: %w", err)
	}

	seen := map[string]struct{}{}
	for _, c := range append(fromLists, selected...) {
		values := c.Emails
		if kind == RecipientPhone {
			values = c.Phones
		}
		for _, v := range values {
			seen[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
