package mock

import (
	"net/url"
	"testing"

	gomock "github.com/golang/mock/gomock"
	"github.com/jrsteele09/go-btp-connectivity/clients"
	"github.com/jrsteele09/go-btp-connectivity/connectivity"
	"github.com/jrsteele09/go-btp-connectivity/token"
)

func NewPropertySupplier(t *testing.T) *MockPropertySupplier {
	return NewMockPropertySupplier(gomock.NewController(t))
}

// NewOAuth2Supplier answers every call with a valid OAuth2 binding for
// serviceURI and tokenURI.
func NewOAuth2Supplier(t *testing.T, serviceURI, tokenURI string, identity clients.Identity) connectivity.PropertySupplier {
	service, err := url.Parse(serviceURI)
	if err != nil {
		t.Fatal(err)
	}
	tokenEndpoint, err := url.Parse(tokenURI)
	if err != nil {
		t.Fatal(err)
	}
	m := NewPropertySupplier(t)
	m.EXPECT().IsOAuth2Binding().AnyTimes().Return(true, nil)
	m.EXPECT().ServiceURI().AnyTimes().Return(service, nil)
	m.EXPECT().TokenURI().AnyTimes().Return(tokenEndpoint, nil)
	m.EXPECT().ClientIdentity().AnyTimes().Return(identity, nil)
	m.EXPECT().CredentialType().AnyTimes().Return(clients.BindingSecret, nil)
	m.EXPECT().OAuth2Options(gomock.Any()).AnyTimes().Return(token.DefaultOptions(), nil)
	return m
}
