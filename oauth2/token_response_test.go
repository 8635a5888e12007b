package oauth2_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-btp-connectivity/oauth2"
	"github.com/stretchr/testify/require"
)

func TestTokenFromResponse(t *testing.T) {
	var resp oauth2.TokenResponse
	body := `{"access_token":"abc","token_type":"bearer","expires_in":3600,"scope":"read","jti":"id-1"}`
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	token := resp.Token(now)
	require.NotNil(t, token)
	require.Equal(t, "abc", token.AccessToken)
	require.Equal(t, now.Add(time.Hour), token.Expiry)
	require.Equal(t, "id-1", token.Extra("jti"))
}

func TestTokenFromEmptyResponse(t *testing.T) {
	var resp *oauth2.TokenResponse
	require.Nil(t, resp.Token(time.Now()))

	require.NoError(t, json.Unmarshal([]byte(`{"token_type":"bearer"}`), &resp))
	require.Nil(t, resp.Token(time.Now()))

	empty := ""
	require.Nil(t, (&oauth2.TokenResponse{AccessToken: &empty}).Token(time.Now()))
}

func TestBearerValue(t *testing.T) {
	require.Equal(t, "Bearer abc", oauth2.BearerValue("abc"))
}
