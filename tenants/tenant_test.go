package tenants_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-btp-connectivity/tenants"
	"github.com/stretchr/testify/require"
)

func TestTenantContext(t *testing.T) {
	ctx := context.Background()
	_, ok := tenants.FromContext(ctx)
	require.False(t, ok)
	require.Empty(t, tenants.IDFromContext(ctx))

	ctx = tenants.WithTenant(ctx, &tenants.Tenant{ID: "t-1", Subdomain: "sub"})
	tenant, ok := tenants.FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "sub", tenant.Subdomain)
	require.Equal(t, "t-1", tenants.IDFromContext(ctx))
}

func TestEmptyTenantIsAbsent(t *testing.T) {
	ctx := tenants.WithTenant(context.Background(), &tenants.Tenant{})
	_, ok := tenants.FromContext(ctx)
	require.False(t, ok)
}
