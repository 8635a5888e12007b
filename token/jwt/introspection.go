package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoUserToken      = errors.New("no user token in context")
	ErrTenantClaimEmpty = errors.New("token carries neither app_tid nor zid")
)

// UserToken is the inbound user JWT of the current request. The signature is
// not checked here: the token is only forwarded as an assertion to the token
// endpoint, which validates it.
type UserToken struct {
	Raw     string
	AppTID  string // IAS tenant claim
	ZID     string // XSUAA zone claim
	Subject string
	Expiry  time.Time
}

// TenantID returns the tenant the token was issued for, preferring app_tid.
func (u *UserToken) TenantID() string {
	if u.AppTID != "" {
		return u.AppTID
	}
	return u.ZID
}

// Parse extracts the tenant relevant claims of rawToken without verifying it.
func Parse(rawToken string) (*UserToken, error) {
	rawToken = strings.TrimSpace(strings.TrimPrefix(rawToken, "Bearer "))
	if rawToken == "" {
		return nil, ErrNoUserToken
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse user token: %w", err)
	}

	claims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	appTID, _ := claims["app_tid"].(string)
	zid, _ := claims["zid"].(string)
	sub, _ := claims["sub"].(string)

	token := &UserToken{Raw: rawToken, AppTID: appTID, ZID: zid, Subject: sub}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		token.Expiry = exp.Time
	}
	if token.TenantID() == "" {
		return token, ErrTenantClaimEmpty
	}
	return token, nil
}

type contextKey struct{}

// WithUserToken returns a copy of ctx carrying the raw inbound user token.
func WithUserToken(ctx context.Context, rawToken string) context.Context {
	return context.WithValue(ctx, contextKey{}, rawToken)
}

// FromContext parses the user token stored in ctx.
func FromContext(ctx context.Context) (*UserToken, error) {
	raw, _ := ctx.Value(contextKey{}).(string)
	if raw == "" {
		return nil, ErrNoUserToken
	}
	return Parse(raw)
}
