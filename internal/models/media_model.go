package models

import "time"

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

func (t MediaType) Valid() bool {
	return t == MediaTypeImage || t == MediaTypeVideo
}

type MediaAsset struct {
	ID               int64     `db:"id" json:"id"`
	FilePath         string    `db:"file_path" json:"file_path"`
	FileType         MediaType `db:"file_type" json:"file_type"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
