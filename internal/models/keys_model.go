package models

import "time"

// ApiKey authenticates automation such as the video renderer. Only the
// hash is stored.
type ApiKey struct {
	ID        int64      `db:"id" json:"id"`
	Label     string     `db:"label" json:"label"`
	Prefix    string     `db:"prefix" json:"prefix"`
	KeyHash   string     `db:"key_hash" json:"-"`
	LastUsed  *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
