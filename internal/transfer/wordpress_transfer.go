package transfer

type WordPressMedia struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
}

type WordPressPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type WordPressPostResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}
