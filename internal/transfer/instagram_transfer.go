package transfer

type InstagramContainer struct {
	ID string `json:"id"`
}

type InstagramContainerStatus struct {
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type InstagramErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}
