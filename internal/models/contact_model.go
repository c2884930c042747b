package models

import "time"

type Contact struct {
	ID        int64             `db:"id" json:"id"`
	Name      string            `db:"name" json:"name"`
	Phones    []string          `db:"phone" json:"phones"`
	Emails    []string          `db:"email" json:"emails"`
	Lists     []*ContactListRef `json:"lists"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

type ContactListRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ContactList struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ContactCount int       `json:"contact_count"`
}
