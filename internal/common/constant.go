package common

const (
	// AuthorizationHeaderName carries the bearer access token on API requests.
	AuthorizationHeaderName = "Authorization"

	// EmptyContentBody is the placeholder body of a freshly created note.
	EmptyContentBody = "<p></p>"

	// InternalLinkPrefix prefixes hrefs that point at another note.
	InternalLinkPrefix = "nk://note/"
)
