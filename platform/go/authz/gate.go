package authz

import (
	"fmt"
	"net/http"

	"github.com/loomworks/agencydesk/platform/go/httpapi"
	"github.com/loomworks/agencydesk/platform/go/tenant"
)

// RequireFeature admits the request only when the resolved tenant's plan
// includes the feature. A missing feature yields a graceful "not available"
// problem rather than an internal error: plans change between requests, so
// the check runs every time.
func RequireFeature(feature Feature) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := tenant.FromContext(r.Context())
			if !ok {
				httpapi.Unauthenticated(w)
				return
			}
			if !PlanIncludes(info.Plan, feature) {
				httpapi.Unauthorized(w, fmt.Sprintf("feature %q is not available on the current plan", feature))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission admits the request only when the resolved platform user's
// role grants the permission. A missing actor is unauthenticated; a present
// actor without the grant is forbidden.
func RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := ActorFromContext(r.Context())
			if !ok {
				httpapi.Unauthenticated(w)
				return
			}
			if !RoleGrants(user.Role, perm) {
				httpapi.Unauthorized(w, fmt.Sprintf("role %q lacks permission %q", user.Role, perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
