package tenant

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/loomworks/agencydesk/platform/go/persistence"
)

// HeaderTenantID is the tenant hint header for public endpoints. It is only a
// hint: every store query re-filters by the resolved tenant id, and resource
// lookups cross-check the hint against the row's own tenant id.
const HeaderTenantID = "x-tenant-id"

// Info captures the resolved tenant identity and branding for a request.
type Info struct {
	TenantID     uuid.UUID
	Slug         string
	DisplayName  string
	Subdomain    string
	LogoURL      *string
	PrimaryColor *string
	Plan         string
}

// FromRecord maps a registry row into the request-scoped Info.
func FromRecord(rec persistence.TenantRecord) Info {
	return Info{
		TenantID:     rec.TenantID,
		Slug:         rec.Slug,
		DisplayName:  rec.DisplayName,
		Subdomain:    rec.Subdomain,
		LogoURL:      rec.LogoURL,
		PrimaryColor: rec.PrimaryColor,
		Plan:         rec.Plan,
	}
}

type ctxKey struct{}

// IntoContext returns a derived context carrying the tenant Info.
func IntoContext(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// FromContext extracts the tenant Info and a boolean indicating presence.
func FromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(ctxKey{}).(Info)
	return info, ok
}

// SubdomainFromHost returns the first label of a host name, without port.
// "acme.agencydesk.app:443" yields "acme"; bare hosts yield "".
func SubdomainFromHost(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return ""
	}
	return strings.ToLower(parts[0])
}
