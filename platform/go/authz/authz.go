// Package authz holds the declarative feature and permission gates. Both are
// pure predicates over static enumerations: plans and roles are read fresh
// from the caller's tenant and profile on every request, never cached.
package authz

import (
	"context"

	"github.com/loomworks/agencydesk/platform/go/persistence"
)

// Feature names a capability included in a tenant's subscription plan.
type Feature string

const (
	FeatureContracts Feature = "contracts"
	FeatureProposals Feature = "proposals"
	FeatureInvoices  Feature = "invoices"
	FeatureWorkflows Feature = "workflows"
	FeatureForms     Feature = "forms"
	FeaturePortal    Feature = "portal"
)

// Permission names an action right granted by a user's role.
type Permission string

const (
	PermViewContracts   Permission = "contracts:view"
	PermManageContracts Permission = "contracts:manage"
	PermManageUsers     Permission = "users:manage"
	PermManageTenant    Permission = "tenant:manage"
	PermRunCleanup      Permission = "maintenance:run"
)

// Subscription plans, from smallest to largest.
const (
	PlanStarter = "starter"
	PlanStudio  = "studio"
	PlanAgency  = "agency"
)

// Platform user roles.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

var planFeatures = map[string]map[Feature]bool{
	PlanStarter: {
		FeatureContracts: true,
		FeatureProposals: true,
	},
	PlanStudio: {
		FeatureContracts: true,
		FeatureProposals: true,
		FeatureInvoices:  true,
		FeatureForms:     true,
		FeaturePortal:    true,
	},
	PlanAgency: {
		FeatureContracts: true,
		FeatureProposals: true,
		FeatureInvoices:  true,
		FeatureForms:     true,
		FeaturePortal:    true,
		FeatureWorkflows: true,
	},
}

var rolePermissions = map[string]map[Permission]bool{
	RoleMember: {
		PermViewContracts: true,
	},
	RoleAdmin: {
		PermViewContracts:   true,
		PermManageContracts: true,
		PermManageUsers:     true,
	},
	RoleOwner: {
		PermViewContracts:   true,
		PermManageContracts: true,
		PermManageUsers:     true,
		PermManageTenant:    true,
		PermRunCleanup:      true,
	},
}

// PlanIncludes reports whether the named plan carries the feature.
// Unknown plans include nothing.
func PlanIncludes(plan string, feature Feature) bool {
	return planFeatures[plan][feature]
}

// RoleGrants reports whether the named role carries the permission.
// Unknown roles grant nothing.
func RoleGrants(role string, perm Permission) bool {
	return rolePermissions[role][perm]
}

// KnownPlan reports whether the plan name is one we sell.
func KnownPlan(plan string) bool {
	_, ok := planFeatures[plan]
	return ok
}

// KnownRole reports whether the role name is assignable to a user.
func KnownRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

type actorKey struct{}

// WithActor stores the authenticated platform user profile on the context.
func WithActor(ctx context.Context, user persistence.User) context.Context {
	return context.WithValue(ctx, actorKey{}, user)
}

// ActorFromContext extracts the platform user profile resolved for this request.
func ActorFromContext(ctx context.Context) (persistence.User, bool) {
	user, ok := ctx.Value(actorKey{}).(persistence.User)
	return user, ok
}
