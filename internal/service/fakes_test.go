package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/repository"
	"github.com/maheshrc27/contentflow/internal/validation"
)

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

// store backs every fake repository so cascades behave like the schema.
type store struct {
	mu       sync.Mutex
	nextID   int64
	posts    map[int64]*models.Post
	media    map[int64]*models.MediaAsset
	links    map[int64][]*models.PostMedia
	contacts map[int64]*models.Contact
	lists    map[int64]*models.ContactList
	members  map[int64]map[int64]struct{}
}

func newStore() *store {
	return &store{
		posts:    map[int64]*models.Post{},
		media:    map[int64]*models.MediaAsset{},
		links:    map[int64][]*models.PostMedia{},
		contacts: map[int64]*models.Contact{},
		lists:    map[int64]*models.ContactList{},
		members:  map[int64]map[int64]struct{}{},
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

type fakePostRepo struct{ s *store }

func copyPost(p *models.Post) *models.Post {
	c := *p
	c.Contacts = append([]string(nil), p.Contacts...)
	c.MediaAssets = []*models.MediaAsset{}
	return &c
}

func (r fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.posts {
		if p.Title == post.Title {
			return 0, repository.ErrUniqueViolation
		}
	}
	c := copyPost(post)
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.posts[c.ID] = c
	return c.ID, nil
}

func (r fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	return copyPost(p), nil
}

func (r fakePostRepo) Update(ctx context.Context, tx *sql.Tx, id int64, f repository.PostFields) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok || p.SentAt != nil {
		return false, nil
	}
	if f.Title != nil {
		p.Title = *f.Title
	}
	if f.Content != nil {
		p.Content = *f.Content
	}
	if f.ContentHTML != nil {
		p.ContentHTML = f.ContentHTML
	}
	if f.Subject != nil {
		p.Subject = f.Subject
	}
	if f.Platform != nil {
		p.Platform = *f.Platform
	}
	if f.Contacts != nil {
		p.Contacts = *f.Contacts
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r fakePostRepo) SetSchedule(ctx context.Context, tx *sql.Tx, id int64, at *time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok || p.SentAt != nil {
		return false, nil
	}
	p.ScheduledAt = at
	p.DispatchStartedAt = nil
	return true, nil
}

func (r fakePostRepo) Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok || p.SentAt != nil {
		return false, nil
	}
	delete(r.s.posts, id)
	delete(r.s.links, id)
	return true, nil
}

func (r fakePostRepo) TitleExists(ctx context.Context, title string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.posts {
		if p.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (r fakePostRepo) ListByState(ctx context.Context, state models.PostState, platform string) ([]*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Post{}
	for _, p := range r.s.posts {
		if p.State() == state && (platform == "" || p.Platform == platform) {
			out = append(out, copyPost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakePostRepo) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Post{}
	for _, p := range r.s.posts {
		if p.IsDue(now) {
			out = append(out, copyPost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	return out, nil
}

func (r fakePostRepo) Claim(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok || !p.IsDue(now) {
		return false, nil
	}
	if p.DispatchStartedAt != nil && !p.DispatchStartedAt.Before(staleBefore) {
		return false, nil
	}
	p.DispatchStartedAt = &now
	return true, nil
}

func (r fakePostRepo) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok || p.SentAt != nil || p.ScheduledAt == nil {
		return false, nil
	}
	p.SentAt = &at
	p.DispatchStartedAt = nil
	return true, nil
}

func (r fakePostRepo) ReleaseClaim(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.posts[id]; ok && p.SentAt == nil {
		p.DispatchStartedAt = nil
	}
	return nil
}

type fakePostMediaRepo struct{ s *store }

func (r fakePostMediaRepo) Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.media[pm.MediaID]; !ok {
		return repository.ErrForeignKeyViolation
	}
	c := *pm
	r.s.links[pm.PostID] = append(r.s.links[pm.PostID], &c)
	return nil
}

func (r fakePostMediaRepo) ListByPostID(ctx context.Context, tx *sql.Tx, postID int64) ([]*models.PostMedia, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]*models.PostMedia{}, r.s.links[postID]...), nil
}

func (r fakePostMediaRepo) RemoveByPostID(ctx context.Context, tx *sql.Tx, postID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.links, postID)
	return nil
}

type fakeMediaRepo struct{ s *store }

func (r fakeMediaRepo) Upsert(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (*models.MediaAsset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.media {
		if m.FilePath == ma.FilePath {
			c := *m
			return &c, nil
		}
	}
	c := *ma
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.media[c.ID] = &c
	out := c
	return &out, nil
}

func (r fakeMediaRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.media[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r fakeMediaRepo) List(ctx context.Context) ([]*models.MediaAsset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.MediaAsset{}
	for _, m := range r.s.media {
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeMediaRepo) listByPost(postID int64) []*models.MediaAsset {
	out := []*models.MediaAsset{}
	for _, l := range r.s.links[postID] {
		if m, ok := r.s.media[l.MediaID]; ok {
			c := *m
			out = append(out, &c)
		}
	}
	return out
}

func (r fakeMediaRepo) ListByPostID(ctx context.Context, tx *sql.Tx, postID int64) ([]*models.MediaAsset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.listByPost(postID), nil
}

func (r fakeMediaRepo) ListByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]*models.MediaAsset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[int64][]*models.MediaAsset{}
	for _, id := range postIDs {
		if m := r.listByPost(id); len(m) > 0 {
			out[id] = m
		}
	}
	return out, nil
}

func (r fakeMediaRepo) Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.media[id]; !ok {
		return false, nil
	}
	delete(r.s.media, id)
	for postID, links := range r.s.links {
		kept := links[:0]
		for _, l := range links {
			if l.MediaID != id {
				kept = append(kept, l)
			}
		}
		r.s.links[postID] = kept
	}
	return true, nil
}

func (r fakeMediaRepo) RemoveUnreferenced(ctx context.Context, tx *sql.Tx, ids []int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		referenced := false
		for _, links := range r.s.links {
			for _, l := range links {
				if l.MediaID == id {
					referenced = true
				}
			}
		}
		if _, ok := r.s.media[id]; ok && !referenced {
			delete(r.s.media, id)
			n++
		}
	}
	return n, nil
}

func (r fakeMediaRepo) ListUnsentPostIDs(ctx context.Context, mediaID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for postID, links := range r.s.links {
		p, ok := r.s.posts[postID]
		if !ok || p.SentAt != nil {
			continue
		}
		for _, l := range links {
			if l.MediaID == mediaID {
				ids = append(ids, postID)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeContactRepo struct{ s *store }

func (r fakeContactRepo) copyContact(c *models.Contact) *models.Contact {
	out := *c
	out.Lists = []*models.ContactListRef{}
	for listID, members := range r.s.members {
		if _, ok := members[c.ID]; ok {
			out.Lists = append(out.Lists, &models.ContactListRef{ID: listID, Name: r.s.lists[listID].Name})
		}
	}
	return &out
}

func (r fakeContactRepo) Create(ctx context.Context, tx *sql.Tx, c *models.Contact) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := *c
	n.ID = r.s.id()
	r.s.contacts[n.ID] = &n
	return n.ID, nil
}

func (r fakeContactRepo) Update(ctx context.Context, tx *sql.Tx, c *models.Contact) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contacts[c.ID]; !ok {
		return false, nil
	}
	n := *c
	r.s.contacts[c.ID] = &n
	return true, nil
}

func (r fakeContactRepo) Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contacts[id]; !ok {
		return false, nil
	}
	delete(r.s.contacts, id)
	for _, members := range r.s.members {
		delete(members, id)
	}
	return true, nil
}

func (r fakeContactRepo) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok {
		return nil, nil
	}
	return r.copyContact(c), nil
}

func (r fakeContactRepo) filter(keep func(c *models.Contact) bool) []*models.Contact {
	out := []*models.Contact{}
	for _, c := range r.s.contacts {
		if keep(c) {
			out = append(out, r.copyContact(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r fakeContactRepo) List(ctx context.Context) ([]*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(*models.Contact) bool { return true }), nil
}

func (r fakeContactRepo) ListByList(ctx context.Context, listID int64) ([]*models.Contact, error) {
	return r.ListByLists(ctx, []int64{listID})
}

func (r fakeContactRepo) ListByLists(ctx context.Context, listIDs []int64) ([]*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(c *models.Contact) bool {
		for _, id := range listIDs {
			if _, ok := r.s.members[id][c.ID]; ok {
				return true
			}
		}
		return false
	}), nil
}

func (r fakeContactRepo) ListByIDs(ctx context.Context, ids []int64) ([]*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(c *models.Contact) bool {
		for _, id := range ids {
			if id == c.ID {
				return true
			}
		}
		return false
	}), nil
}

func (r fakeContactRepo) ExistsWithMethods(ctx context.Context, tx *sql.Tx, phones, emails []string, excludeID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sig := validation.Signature(phones, emails)
	for _, c := range r.s.contacts {
		if c.ID != excludeID && validation.Signature(c.Phones, c.Emails) == sig {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeContactRepo) SetLists(ctx context.Context, tx *sql.Tx, contactID int64, listIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, members := range r.s.members {
		delete(members, contactID)
	}
	for _, id := range listIDs {
		if _, ok := r.s.lists[id]; !ok {
			continue
		}
		if r.s.members[id] == nil {
			r.s.members[id] = map[int64]struct{}{}
		}
		r.s.members[id][contactID] = struct{}{}
	}
	return nil
}

type fakeListRepo struct{ s *store }

func (r fakeListRepo) Create(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.lists {
		if l.Name == name {
			return 0, repository.ErrUniqueViolation
		}
	}
	id := r.s.id()
	r.s.lists[id] = &models.ContactList{ID: id, Name: name, CreatedAt: time.Now()}
	return id, nil
}

func (r fakeListRepo) GetByName(ctx context.Context, name string) (*models.ContactList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.lists {
		if l.Name == name {
			c := *l
			return &c, nil
		}
	}
	return nil, nil
}

func (r fakeListRepo) List(ctx context.Context) ([]*models.ContactList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.ContactList{}
	for _, l := range r.s.lists {
		c := *l
		c.ContactCount = len(r.s.members[l.ID])
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeListRepo) Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lists[id]; !ok {
		return false, nil
	}
	delete(r.s.lists, id)
	delete(r.s.members, id)
	return true, nil
}

func (r fakeListRepo) AddContacts(ctx context.Context, tx *sql.Tx, listID int64, contactIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.members[listID] == nil {
		r.s.members[listID] = map[int64]struct{}{}
	}
	for _, id := range contactIDs {
		r.s.members[listID][id] = struct{}{}
	}
	return nil
}

type recordingTrigger struct {
	mu    sync.Mutex
	calls []int64
}

func (t *recordingTrigger) Trigger(ctx context.Context, postID int64, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, postID)
	return nil
}
