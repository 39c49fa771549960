package domain

import "net/url"

// CarriedContext is opaque continuation data captured before the login
// attempt begins and passed through the whole sequence unmodified. It decides
// where the user lands after authentication.
type CarriedContext struct {
	// Authorization holds pending third-party authorization parameters
	// (e.g., an OpenID authorize request interrupted by the login prompt).
	Authorization *AuthorizationParams
	// Enrollment holds a pending device-enrollment ticket.
	Enrollment *EnrollmentTicket
}

// AuthorizationParams are the raw query parameters of a pending authorization
// request. They are forwarded to the continuation destination verbatim.
type AuthorizationParams struct {
	Params url.Values
}

// EnrollmentTicket references a device-enrollment flow to resume after login.
type EnrollmentTicket struct {
	Token string
}

// RedirectTarget is the single post-login navigation target computed by the
// redirect resolver.
type RedirectTarget struct {
	Path  string
	Query url.Values
}

// URL renders the target as a relative URL.
func (t RedirectTarget) URL() string {
	if len(t.Query) == 0 {
		return t.Path
	}
	return t.Path + "?" + t.Query.Encode()
}
