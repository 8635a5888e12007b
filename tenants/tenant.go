package tenants

import "context"

// Tenant is the subscriber (or provider) account a request is executed for.
type Tenant struct {
	ID        string `json:"id"`
	Subdomain string `json:"subdomain,omitempty"` // first host label of the tenant's auth URL
}

type contextKey struct{}

// WithTenant returns a copy of ctx carrying tenant.
func WithTenant(ctx context.Context, tenant *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, tenant)
}

// FromContext returns the current tenant, if any.
func FromContext(ctx context.Context) (*Tenant, bool) {
	tenant, ok := ctx.Value(contextKey{}).(*Tenant)
	if !ok || tenant == nil || tenant.ID == "" {
		return nil, false
	}
	return tenant, true
}

// IDFromContext returns the current tenant id or "".
func IDFromContext(ctx context.Context) string {
	if tenant, ok := FromContext(ctx); ok {
		return tenant.ID
	}
	return ""
}
