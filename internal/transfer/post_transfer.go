package transfer

import "time"

type PostCreation struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	ContentHTML *string    `json:"content_html"`
	Subject     *string    `json:"subject"`
	Platform    string     `json:"platform"`
	Contacts    []string   `json:"contacts"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	MediaIDs    []int64    `json:"media_ids"`
}

type PostUpdate struct {
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	ContentHTML *string   `json:"content_html"`
	Subject     *string   `json:"subject"`
	Platform    *string   `json:"platform"`
	Contacts    *[]string `json:"contacts"`
}

type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

type MediaLinkRequest struct {
	MediaIDs []int64 `json:"media_ids"`
}

type MediaRegistration struct {
	FilePath         string `json:"file_path"`
	FileType         string `json:"file_type"`
	OriginalFilename string `json:"original_filename"`
}

type GenerateRequest struct {
	Platform string `json:"platform"`
	Brief    string `json:"brief"`
}

type TranslateRequest struct {
	Content  string `json:"content"`
	Language string `json:"language"`
	Subject  string `json:"subject"`
}

type GeneratedContent struct {
	Content     string `json:"content"`
	Subject     string `json:"subject,omitempty"`
	ContentHTML string `json:"content_html,omitempty"`
}
