package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// ClientCredentialsGrant allows machine-to-machine authentication.
	// Used in: Technical user flows (provider or current tenant)
	// Token request includes: client_id, client_secret (or a client certificate), optional app_tid
	// Returns: access_token (no refresh_token or id_token)
	ClientCredentialsGrant GrantType = "client_credentials"

	// JWTBearerGrant exchanges an inbound user token for a token of this client.
	// Used in: Named user flows (principal propagation)
	// Token request includes: assertion, client_id, client_secret (or a client certificate)
	// Standard: RFC 7523
	JWTBearerGrant GrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// TokenType is the only token type attached to outbound requests.
const TokenType = "Bearer"

// Header names written by destinations.
const (
	// AuthorizationHeader carries the token for the target system itself.
	AuthorizationHeader = "Authorization"

	// ProxyAuthorizationHeader carries the token for an intermediate proxy,
	// e.g. the connectivity proxy in front of on-premise systems.
	ProxyAuthorizationHeader = "Proxy-Authorization"

	// ZoneIDHeader propagates the tenant to XSUAA token endpoints.
	ZoneIDHeader = "X-zid"
)

// BearerValue formats an access token as a header value.
func BearerValue(accessToken string) string {
	return TokenType + " " + accessToken
}
