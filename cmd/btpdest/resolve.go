package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/go-btp-connectivity/connectivity"
	"github.com/jrsteele09/go-btp-connectivity/destination"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/internal/utils"
	"github.com/jrsteele09/go-btp-connectivity/oauth2"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/jrsteele09/go-btp-connectivity/servicebinding"
	"github.com/jrsteele09/go-btp-connectivity/tenants"
	"github.com/jrsteele09/go-btp-connectivity/token/jwt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(ctx context.Context) *cobra.Command {
	opts := &ResolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "resolves the destination of a service binding and prints its headers",
		Example: `  btpdest resolve --bindings bindings.yaml --service workflow --option WorkflowOptions=REST_API
  btpdest resolve --service identity --behalf TECHNICAL_USER_PROVIDER --option IasOptions=withApplicationName,my-app`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Complete(); err != nil {
				return err
			}
			return opts.Run(ctx, cmd.OutOrStdout())
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// ResolveOptions are the flags of the resolve command.
type ResolveOptions struct {
	// BindingsPath is a JSON or YAML list of bindings. VCAP_SERVICES is used when empty.
	BindingsPath string
	Service      string
	Behalf       string
	// Options are extension options in the form Name=arg1,arg2.
	Options   []string
	Tenant    string
	Subdomain string
	UserToken string
	// Request performs a GET for this path against the destination.
	Request string

	accessor   servicebinding.Accessor
	onBehalfOf oauthmodel.OnBehalfOf
	extensions []any
}

func (o *ResolveOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BindingsPath, "bindings", "", "path to a JSON or YAML file of service bindings, defaults to VCAP_SERVICES")
	fs.StringVarP(&o.Service, "service", "s", "", "service identifier of the binding to resolve")
	fs.StringVar(&o.Behalf, "behalf", oauthmodel.TechnicalUserCurrentTenant.String(), "on behalf of mode")
	fs.StringArrayVar(&o.Options, "option", nil, "extension option as Name=arg1,arg2, may be repeated")
	fs.StringVar(&o.Tenant, "tenant", "", "id of the current tenant")
	fs.StringVar(&o.Subdomain, "subdomain", "", "subdomain of the current tenant")
	fs.StringVar(&o.UserToken, "user-token", "", "user token for NAMED_USER_CURRENT_TENANT")
	fs.StringVar(&o.Request, "request", "", "path to GET through the resolved destination")
}

func (o *ResolveOptions) Validate() error {
	if o.Service == "" {
		return errors.New("--service is required")
	}
	return nil
}

func (o *ResolveOptions) Complete() error {
	if err := o.Validate(); err != nil {
		return err
	}

	behalf, err := oauthmodel.ParseOnBehalfOf(o.Behalf)
	if err != nil {
		return err
	}
	o.onBehalfOf = behalf

	if o.BindingsPath == "" {
		o.accessor = servicebinding.NewEnvAccessor()
	} else if o.accessor, err = servicebinding.LoadFile(o.BindingsPath); err != nil {
		return err
	}

	o.extensions = o.extensions[:0]
	for _, raw := range o.Options {
		option, err := parseOption(raw)
		if err != nil {
			return err
		}
		o.extensions = append(o.extensions, option)
	}
	return nil
}

// parseOption turns Name=arg1,arg2 into an extension option.
func parseOption(raw string) (any, error) {
	name, rawArgs, _ := strings.Cut(raw, "=")
	var args []any
	if rawArgs != "" {
		for _, arg := range strings.Split(rawArgs, ",") {
			args = append(args, arg)
		}
	}
	option, err := connectivity.GenericOption(name, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid option %q", raw)
	}
	return option, nil
}

func (o *ResolveOptions) Run(ctx context.Context, out io.Writer) error {
	options, err := connectivity.ForServiceIdentifier(o.accessor, servicebinding.Identifier(o.Service)).
		OnBehalfOf(o.onBehalfOf).
		WithOption(o.extensions...).
		Build()
	if err != nil {
		return err
	}

	if o.Tenant != "" {
		ctx = tenants.WithTenant(ctx, &tenants.Tenant{ID: o.Tenant, Subdomain: o.Subdomain})
	}
	if o.UserToken != "" {
		ctx = jwt.WithUserToken(ctx, o.UserToken)
	}

	d, err := resolve(ctx, options)
	if err != nil {
		return err
	}
	if err := printDestination(ctx, out, d); err != nil {
		return err
	}
	if o.Request == "" {
		return nil
	}
	return request(ctx, out, d, o.Request)
}

// resolve tries the IAS loader first, as IAS backed bindings carry no OAuth2
// client of their own.
func resolve(ctx context.Context, options connectivity.Options) (*destination.HttpDestination, error) {
	loader := connectivity.NewLoader()
	d, err := connectivity.NewIdentityAuthenticationLoader(loader).TryGetDestination(ctx, options)
	if err == nil || !apperrors.Is(err, apperrors.ErrDestinationNotFound) {
		return d, err
	}
	log.Debug().Err(err).Str("service", options.Identifier().String()).Msg("binding is not IAS backed")
	return loader.TryGetDestination(ctx, options)
}

func printDestination(ctx context.Context, out io.Writer, d *destination.HttpDestination) error {
	headers, err := d.HTTPHeader(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "name:  %s\n", d.Name())
	fmt.Fprintf(out, "uri:   %s\n", d.URI())
	if proxy := d.ProxyURL(); proxy != nil {
		fmt.Fprintf(out, "proxy: %s (%s)\n", proxy, d.ProxyType())
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range headers.Values(name) {
			if name == oauth2.AuthorizationHeader || name == oauth2.ProxyAuthorizationHeader {
				value = utils.Mask(value)
			}
			fmt.Fprintf(out, "header %s: %s\n", name, value)
		}
	}
	return nil
}

func request(ctx context.Context, out io.Writer, d *destination.HttpDestination, path string) error {
	client, err := d.Client()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return errors.Wrapf(err, "invalid request path %q", path)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	fmt.Fprintf(out, "status: %s\n", resp.Status)
	return nil
}
