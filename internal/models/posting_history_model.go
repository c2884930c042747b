package models

import "time"

// PostingHistory is one dispatch attempt of a post.
type PostingHistory struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	Platform     string    `db:"platform" json:"platform"`
	Success      bool      `db:"success" json:"success"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	DurationMS   int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
