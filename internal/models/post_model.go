package models

import "time"

type Post struct {
	ID                int64         `db:"id" json:"id"`
	Title             string        `db:"title" json:"title"`
	Content           string        `db:"content" json:"content"`
	ContentHTML       *string       `db:"content_html" json:"content_html,omitempty"`
	Subject           *string       `db:"asunto" json:"subject,omitempty"`
	Platform          string        `db:"platform" json:"platform"`
	Contacts          []string      `db:"contacts" json:"contacts"`
	ScheduledAt       *time.Time    `db:"fecha_hora" json:"scheduled_at,omitempty"`
	SentAt            *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	DispatchStartedAt *time.Time    `db:"dispatch_started_at" json:"-"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
	MediaAssets       []*MediaAsset `json:"media_assets"`
}

type PostState string

const (
	PostStateDraft     PostState = "draft"
	PostStateScheduled PostState = "scheduled"
	PostStateSent      PostState = "sent"
)

// State is derived from the scheduled and sent timestamps only. A claimed
// (dispatching) post still reports scheduled.
func (p *Post) State() PostState {
	switch {
	case p.SentAt != nil:
		return PostStateSent
	case p.ScheduledAt != nil:
		return PostStateScheduled
	default:
		return PostStateDraft
	}
}

func (p *Post) IsDue(now time.Time) bool {
	return p.State() == PostStateScheduled && !p.ScheduledAt.After(now)
}

type PostMedia struct {
	PostID   int64 `db:"post_id"`
	MediaID  int64 `db:"media_id"`
	Position int   `db:"position"`
}
