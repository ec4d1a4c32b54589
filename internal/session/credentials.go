package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/securecookie"
)

// Cookie names double as the client-local storage keys.
const (
	TokenCookieName        = "token"
	RefreshTokenCookieName = "refresh_token"
)

// CredentialStore persists session credentials in signed, encrypted cookies.
type CredentialStore struct {
	codec  *securecookie.SecureCookie
	secure bool
	now    func() time.Time
}

// NewCredentialStore creates a store. hashKey must be 32 or 64 bytes;
// blockKey must be 16, 24 or 32 bytes, or nil to sign without encrypting.
func NewCredentialStore(hashKey, blockKey []byte, secure bool) *CredentialStore {
	codec := securecookie.New(hashKey, blockKey)
	// Cookie lifetime is governed by the cookie itself, not the codec timestamp.
	codec.MaxAge(0)
	return &CredentialStore{codec: codec, secure: secure, now: time.Now}
}

// Save writes both tokens to the response. Both are encoded before either
// cookie is set, so a failed Save leaves the response untouched.
func (s *CredentialStore) Save(w http.ResponseWriter, creds domain.Credentials) error {
	expires, hasExpiry := tokenExpiry(creds.AccessToken)
	if hasExpiry && !expires.After(s.now()) {
		hasExpiry = false
	}

	cookies := make([]*http.Cookie, 0, 2)
	for _, kv := range []struct{ name, value string }{
		{TokenCookieName, creds.AccessToken},
		{RefreshTokenCookieName, creds.RefreshToken},
	} {
		encoded, err := s.codec.Encode(kv.name, kv.value)
		if err != nil {
			return fmt.Errorf("encode %s cookie: %w", kv.name, err)
		}
		c := &http.Cookie{
			Name:     kv.name,
			Value:    encoded,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   s.secure,
		}
		if hasExpiry {
			c.Expires = expires
			c.MaxAge = int(expires.Sub(s.now()).Seconds())
		}
		cookies = append(cookies, c)
	}

	for _, c := range cookies {
		http.SetCookie(w, c)
	}
	return nil
}

// Load reads the credentials from the request. The boolean is false when no
// valid token cookie is present.
func (s *CredentialStore) Load(r *http.Request) (domain.Credentials, bool) {
	token, ok := s.read(r, TokenCookieName)
	if !ok || token == "" {
		return domain.Credentials{}, false
	}
	refresh, _ := s.read(r, RefreshTokenCookieName)
	return domain.Credentials{AccessToken: token, RefreshToken: refresh}, true
}

func (s *CredentialStore) read(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	var value string
	if err := s.codec.Decode(name, c.Value, &value); err != nil {
		return "", false
	}
	return value, true
}

// Clear expires both credential cookies.
func (s *CredentialStore) Clear(w http.ResponseWriter) {
	for _, name := range []string{TokenCookieName, RefreshTokenCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   s.secure,
			MaxAge:   -1,
		})
	}
}

// tokenExpiry reads the exp claim of a JWT without verifying it. Opaque
// tokens report no expiry.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
