package connectivity

import (
	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/go-btp-connectivity/clients"
	"github.com/jrsteele09/go-btp-connectivity/destination"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/oauth2"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/jrsteele09/go-btp-connectivity/token"
	"github.com/pkg/errors"
)

// OAuth2DestinationBuilder creates an OAuth2 destination without a service
// binding:
//
//	d, err := NewOAuth2DestinationBuilder("https://api.example.com").
//		WithTokenEndpoint("https://tenant.authentication.example.com").
//		WithClient(clients.ClientCredentials{ClientID: id, Secret: secret}, oauthmodel.TechnicalUserCurrentTenant).
//		Name("example").
//		Build()
type OAuth2DestinationBuilder struct {
	destination    *destination.Builder
	tokenURI       string
	identity       clients.Identity
	onBehalfOf     oauthmodel.OnBehalfOf
	serviceOptions []token.ServiceOption
}

func NewOAuth2DestinationBuilder(targetURL string) *OAuth2DestinationBuilder {
	return &OAuth2DestinationBuilder{destination: destination.NewBuilder(targetURL)}
}

func (b *OAuth2DestinationBuilder) WithTokenEndpoint(tokenURI string) *OAuth2DestinationBuilder {
	b.tokenURI = tokenURI
	return b
}

func (b *OAuth2DestinationBuilder) WithClient(identity clients.Identity, behalf oauthmodel.OnBehalfOf) *OAuth2DestinationBuilder {
	b.identity = identity
	b.onBehalfOf = behalf
	return b
}

// WithTokenServiceOptions configures the token service behind the destination,
// e.g. a shared cache or executor.
func (b *OAuth2DestinationBuilder) WithTokenServiceOptions(options ...token.ServiceOption) *OAuth2DestinationBuilder {
	b.serviceOptions = append(b.serviceOptions, options...)
	return b
}

func (b *OAuth2DestinationBuilder) Name(name string) *OAuth2DestinationBuilder {
	b.destination.Name(name)
	return b
}

func (b *OAuth2DestinationBuilder) Header(name, value string) *OAuth2DestinationBuilder {
	b.destination.Header(name, value)
	return b
}

func (b *OAuth2DestinationBuilder) Property(name, value string) *OAuth2DestinationBuilder {
	b.destination.Property(name, value)
	return b
}

func (b *OAuth2DestinationBuilder) Build() (*destination.HttpDestination, error) {
	var result *multierror.Error
	if b.tokenURI == "" {
		result = multierror.Append(result, errors.New("a token endpoint is required"))
	}
	if b.identity == nil {
		result = multierror.Append(result, errors.New("a client identity is required"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, apperrors.Access(err, "invalid OAuth2 destination")
	}

	options := append([]token.ServiceOption{token.WithOnBehalfOf(b.onBehalfOf)}, b.serviceOptions...)
	service, err := token.NewService(b.tokenURI, b.identity, options...)
	if err != nil {
		return nil, err
	}
	return b.destination.
		HeaderProvider(NewOAuth2HeaderProvider(oauth2.AuthorizationHeader, service)).
		Build()
}
