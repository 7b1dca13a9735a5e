package models

// TokenPair is the access/refresh credential issued by the auth endpoints
// and replayed as a bearer token on every authenticated request.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthResponse is the body returned by /auth/login/ and /auth/register/.
// The user object is only present on registration.
type AuthResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user,omitempty"`
}
