package transfer

type LinkedInUserInfo struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

type LinkedInServiceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type LinkedInRegisterUploadRequest struct {
	RegisterUploadRequest struct {
		Recipes              []string                      `json:"recipes"`
		Owner                string                        `json:"owner"`
		ServiceRelationships []LinkedInServiceRelationship `json:"serviceRelationships"`
	} `json:"registerUploadRequest"`
}

type LinkedInRegisterUploadResponse struct {
	Value struct {
		Asset           string `json:"asset"`
		UploadMechanism struct {
			Request struct {
				UploadURL string            `json:"uploadUrl"`
				Headers   map[string]string `json:"headers"`
			} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
		} `json:"uploadMechanism"`
	} `json:"value"`
}

type LinkedInShareMedia struct {
	Status      string            `json:"status"`
	Media       string            `json:"media"`
	Title       *LinkedInTextNode `json:"title,omitempty"`
	Description *LinkedInTextNode `json:"description,omitempty"`
}

type LinkedInTextNode struct {
	Text string `json:"text"`
}

type LinkedInShareContent struct {
	ShareCommentary    LinkedInTextNode     `json:"shareCommentary"`
	ShareMediaCategory string               `json:"shareMediaCategory"`
	Media              []LinkedInShareMedia `json:"media,omitempty"`
}

type LinkedInUGCPost struct {
	Author          string `json:"author"`
	LifecycleState  string `json:"lifecycleState"`
	SpecificContent struct {
		ShareContent LinkedInShareContent `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
	Visibility struct {
		MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
	} `json:"visibility"`
}
