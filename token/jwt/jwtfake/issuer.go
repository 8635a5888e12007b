// Package jwtfake issues HMAC signed user tokens for tests.
package jwtfake

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var signingKey = []byte("jwtfake-signing-key")

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims describes the user token to issue. Empty fields are omitted.
type Claims struct {
	Subject string
	AppTID  string
	ZID     string
	TTL     time.Duration
}

// Issue returns a signed compact JWT.
func Issue(c Claims) (string, error) {
	ttl := c.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	claims := jwtlib.MapClaims{
		"sub": c.Subject,
		"iat": NowTimeFunc().Unix(),
		"exp": NowTimeFunc().Add(ttl).Unix(),
		"jti": uuid.New().String(),
	}
	if c.AppTID != "" {
		claims["app_tid"] = c.AppTID
	}
	if c.ZID != "" {
		claims["zid"] = c.ZID
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(signingKey)
}

// MustIssue is Issue for test setup code.
func MustIssue(c Claims) string {
	token, err := Issue(c)
	if err != nil {
		panic(err)
	}
	return token
}
