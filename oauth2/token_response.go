package oauth2

import (
	"strings"
	"time"

	xoauth2 "golang.org/x/oauth2"
)

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749,
// plus the "jti" member returned by the BTP authorization servers.
type TokenResponse struct {
	// AccessToken is the token attached to outbound requests.
	// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."
	// Usage: Sent as "Authorization: Bearer <access_token>" or "Proxy-Authorization: Bearer <access_token>"
	// Note: A response without this member is not a usable token
	AccessToken *string `json:"access_token,omitempty"`

	// TokenType indicates how to use the access token.
	// Example: "bearer"
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 43199
	// Usage: Drives the expiry of the cached token
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// Scope indicates the access token's granted permissions.
	// Example: "uaa.resource openid"
	Scope string `json:"scope,omitempty"`

	// Jti is the unique id of the issued token.
	// Example: "8d3a4f1f8b9a4b6e9e1c0f1b2a3c4d5e"
	Jti string `json:"jti,omitempty"`
}

// Token converts the response into an x/oauth2 token, computing the expiry
// from ExpiresIn relative to now. A response without an access token yields nil.
func (r *TokenResponse) Token(now time.Time) *xoauth2.Token {
	if r == nil || r.AccessToken == nil || strings.TrimSpace(*r.AccessToken) == "" {
		return nil
	}
	t := &xoauth2.Token{
		AccessToken: *r.AccessToken,
		TokenType:   r.TokenType,
	}
	if r.ExpiresIn > 0 {
		t.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return t.WithExtra(map[string]any{
		"scope": r.Scope,
		"jti":   r.Jti,
	})
}
