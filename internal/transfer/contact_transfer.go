package transfer

// Result is returned by operations whose expected failures are reported to
// the operator instead of raised.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

type BulkResult struct {
	Added  int      `json:"added"`
	Errors []string `json:"errors"`
}

type ContactInput struct {
	Name    string   `json:"name"`
	Phones  []string `json:"phones"`
	Emails  []string `json:"emails"`
	ListIDs []int64  `json:"list_ids"`
}

type ContactImport struct {
	Rows []*ContactInput `json:"rows"`
}

type ContactListInput struct {
	Name string `json:"name"`
}

type ListMembers struct {
	ContactIDs []int64 `json:"contact_ids"`
}

type RecipientsRequest struct {
	Kind       string  `json:"kind"` // email or phone
	ListIDs    []int64 `json:"list_ids"`
	ContactIDs []int64 `json:"contact_ids"`
}
