package userdir

// User is a pre-configured identity selectable during authorization.
type User struct {
	// Login identifies the user on the selection page and in grants
	Login string `json:"login"`

	// Description is a human-readable hint shown next to the login
	Description string `json:"description"`

	// UserInfo holds the claims returned by the userinfo endpoint.
	// The engine treats the payload as opaque and passes it through verbatim.
	UserInfo map[string]interface{} `json:"userInfo"`
}
