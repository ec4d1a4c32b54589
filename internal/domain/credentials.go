package domain

// Credentials is the access/refresh token pair returned by a successful login.
type Credentials struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// IsZero returns true if no access token is present.
func (c Credentials) IsZero() bool {
	return c.AccessToken == ""
}
