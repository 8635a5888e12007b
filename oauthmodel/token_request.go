package oauthmodel

import (
	"net/url"

	"github.com/jrsteele09/go-btp-connectivity/oauth2"
	"github.com/zitadel/schema"
)

var encoder = schema.NewEncoder()

// JWTBearerRequest holds the form parameters of an RFC 7523 token request.
// Encoded as application/x-www-form-urlencoded body to the token endpoint.
type JWTBearerRequest struct {
	// GrantType is always "urn:ietf:params:oauth:grant-type:jwt-bearer".
	GrantType oauth2.GrantType `schema:"grant_type"`

	// Assertion is the inbound user token being exchanged.
	// Required: Yes
	// Security: Never log this value
	Assertion string `schema:"assertion"`

	// ClientID identifies the OAuth2 client making the request.
	// Required: Yes (also for mTLS clients)
	ClientID string `schema:"client_id"`

	// ClientSecret is only sent by clients authenticating with a secret.
	// Required: No (empty for certificate based identities)
	// Security: Never log or expose this value
	ClientSecret string `schema:"client_secret,omitempty"`

	// AppTID scopes the request to a tenant on IAS token endpoints.
	// Required: No
	AppTID string `schema:"app_tid,omitempty"`
}

// Validate checks the mandatory members.
func (r *JWTBearerRequest) Validate() error {
	if r.ClientID == "" {
		return ErrMissingClientID
	}
	if r.Assertion == "" {
		return ErrMissingAssertion
	}
	return nil
}

// Form encodes the request and layers the additional parameters on top.
// Parameters already set by the request are not overwritten.
func (r *JWTBearerRequest) Form(additional map[string]string) (url.Values, error) {
	form := make(url.Values)
	if err := encoder.Encode(r, form); err != nil {
		return nil, err
	}
	for k, v := range additional {
		if _, ok := form[k]; !ok {
			form.Set(k, v)
		}
	}
	return form, nil
}
