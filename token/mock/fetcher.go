package mock

import (
	"testing"

	gomock "github.com/golang/mock/gomock"
	"github.com/jrsteele09/go-btp-connectivity/token"
	oauth2 "golang.org/x/oauth2"
)

func NewFetcher(t *testing.T) *MockFetcher {
	return NewMockFetcher(gomock.NewController(t))
}

// NewFetcherReturning answers every Fetch with token and err.
func NewFetcherReturning(t *testing.T, tok *oauth2.Token, err error) token.Fetcher {
	m := NewFetcher(t)
	m.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().Return(tok, err)
	return m
}
