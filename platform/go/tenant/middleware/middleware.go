// Package middleware resolves the tenant for each request and binds the
// authenticated principal to it. Public endpoints derive the tenant from a
// request hint; authenticated platform requests derive it transitively from
// the caller's profile so a header can never point queries at another tenant.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/loomworks/agencydesk/platform/go/auth"
	"github.com/loomworks/agencydesk/platform/go/authz"
	"github.com/loomworks/agencydesk/platform/go/httpapi"
	"github.com/loomworks/agencydesk/platform/go/persistence"
	"github.com/loomworks/agencydesk/platform/go/tenant"
)

// Registry is the minimal tenant lookup surface required by the middlewares.
// Implemented by persistence.TenantStore.
type Registry interface {
	GetTenant(ctx context.Context, id uuid.UUID) (persistence.TenantRecord, error)
	GetTenantBySlug(ctx context.Context, slug string) (persistence.TenantRecord, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (persistence.TenantRecord, error)
}

// Directory is the platform user lookup surface. Implemented by persistence.UserStore.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (persistence.User, error)
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
}

// SessionValidator is the portal session check surface. Implemented by
// persistence.PortalSessionStore.
type SessionValidator interface {
	ValidateSession(ctx context.Context, clientID uuid.UUID, rawToken string) (persistence.PortalClient, error)
}

type clientKey struct{}

// ClientFromContext extracts the validated portal client for this request.
func ClientFromContext(ctx context.Context) (persistence.PortalClient, bool) {
	client, ok := ctx.Value(clientKey{}).(persistence.PortalClient)
	return client, ok
}

// WithPublicTenant resolves the tenant for unauthenticated tenant-scoped
// endpoints from the x-tenant-id header (id or slug) or the Host subdomain.
// An absent or unrecognized hint is a hard failure: downstream queries always
// filter by tenant id and must never silently run unfiltered.
func WithPublicTenant(registry Registry) func(http.Handler) http.Handler {
	if registry == nil {
		panic("tenant middleware: registry is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, err := resolveHint(r, registry)
			if err != nil {
				if errors.Is(err, persistence.ErrTenantNotFound) || errors.Is(err, errNoTenantHint) {
					httpapi.Validation(w, map[string][]string{
						tenant.HeaderTenantID: {"a valid tenant hint is required"},
					})
					return
				}
				httpapi.Internal(w)
				return
			}

			ctx := tenant.IntoContext(r.Context(), tenant.FromRecord(rec))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errNoTenantHint = errors.New("no tenant hint on request")

func resolveHint(r *http.Request, registry Registry) (persistence.TenantRecord, error) {
	hint := strings.TrimSpace(r.Header.Get(tenant.HeaderTenantID))
	if hint != "" {
		if id, err := uuid.Parse(hint); err == nil {
			return registry.GetTenant(r.Context(), id)
		}
		return registry.GetTenantBySlug(r.Context(), hint)
	}

	if sub := tenant.SubdomainFromHost(r.Host); sub != "" {
		return registry.GetTenantBySubdomain(r.Context(), sub)
	}

	return persistence.TenantRecord{}, errNoTenantHint
}

// RequirePlatformUser admits platform-authenticated requests only. The
// caller's profile row supplies the role and the authoritative tenant id; the
// request's own tenant hint is deliberately ignored on this path.
func RequirePlatformUser(directory Directory, registry Registry) func(http.Handler) http.Handler {
	if directory == nil {
		panic("tenant middleware: directory is required")
	}
	if registry == nil {
		panic("tenant middleware: registry is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok || ac.Kind != auth.IdentityPlatform || ac.User == nil {
				httpapi.Unauthenticated(w)
				return
			}

			user, err := lookupProfile(r.Context(), directory, ac.User)
			if err != nil {
				if errors.Is(err, persistence.ErrUserNotFound) {
					httpapi.Unauthenticated(w)
					return
				}
				httpapi.Internal(w)
				return
			}

			rec, err := registry.GetTenant(r.Context(), user.TenantID)
			if err != nil {
				if errors.Is(err, persistence.ErrTenantNotFound) {
					httpapi.Unauthenticated(w)
					return
				}
				httpapi.Internal(w)
				return
			}

			ctx := authz.WithActor(r.Context(), user)
			ctx = tenant.IntoContext(ctx, tenant.FromRecord(rec))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func lookupProfile(ctx context.Context, directory Directory, creds *auth.UserCredentials) (persistence.User, error) {
	if id, err := uuid.Parse(creds.ID); err == nil {
		if user, err := directory.GetUser(ctx, id); err == nil {
			return user, nil
		} else if !errors.Is(err, persistence.ErrUserNotFound) {
			return persistence.User{}, err
		}
	}

	// Identity providers mint their own subjects; fall back to the verified email.
	if creds.Email == "" {
		return persistence.User{}, persistence.ErrUserNotFound
	}
	return directory.GetUserByEmail(ctx, creds.Email)
}

// RequirePortalClient admits portal-authenticated requests only. The session
// is validated against the store on every request; the client's own tenant id
// resolves the tenant. All failure modes produce the same response.
func RequirePortalClient(sessions SessionValidator, registry Registry) func(http.Handler) http.Handler {
	if sessions == nil {
		panic("tenant middleware: session validator is required")
	}
	if registry == nil {
		panic("tenant middleware: registry is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok || ac.Kind != auth.IdentityPortal || ac.Portal == nil {
				httpapi.Unauthenticated(w)
				return
			}

			client, err := sessions.ValidateSession(r.Context(), ac.Portal.ClientID, ac.Portal.RawToken)
			if err != nil {
				if errors.Is(err, persistence.ErrPortalSessionInvalid) {
					httpapi.Unauthenticated(w)
					return
				}
				httpapi.Internal(w)
				return
			}

			rec, err := registry.GetTenant(r.Context(), client.TenantID)
			if err != nil {
				if errors.Is(err, persistence.ErrTenantNotFound) {
					httpapi.Unauthenticated(w)
					return
				}
				httpapi.Internal(w)
				return
			}

			ctx := context.WithValue(r.Context(), clientKey{}, client)
			ctx = tenant.IntoContext(ctx, tenant.FromRecord(rec))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
