package requesttrace

import (
	"context"
	"errors"

	platformauth "github.com/loomworks/agencydesk/platform/go/auth"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "AGENCYDESK_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser         ActorKind = "user"
	ActorKindPortalClient ActorKind = "portal_client"
	ActorKindAnonymous    ActorKind = "anonymous"
	ActorKindSystem       ActorKind = "system"
)

// AuditInfo captures request-scoped metadata needed for traceability and auditing.
// ActorID is optional; set only when ActorKind is user or portal_client.
// RequestID is optional but encouraged.
type AuditInfo struct {
	ActorKind ActorKind
	ActorID   *string
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromAuth builds an AuditInfo from the resolved identity of a request.
// Returns an error when an authenticated identity is missing its subject.
func FromAuth(authCtx platformauth.AuthContext, requestID string) (AuditInfo, error) {
	switch authCtx.Kind {
	case platformauth.IdentityPlatform:
		if authCtx.User == nil || authCtx.User.ID == "" {
			return AuditInfo{}, errors.New("user id is required to build audit info")
		}
		id := authCtx.User.ID
		return AuditInfo{ActorKind: ActorKindUser, ActorID: &id, RequestID: requestID}, nil
	case platformauth.IdentityPortal:
		if authCtx.Portal == nil {
			return AuditInfo{}, errors.New("portal credentials are required to build audit info")
		}
		id := authCtx.Portal.ClientID.String()
		return AuditInfo{ActorKind: ActorKindPortalClient, ActorID: &id, RequestID: requestID}, nil
	default:
		return Anonymous(requestID), nil
	}
}

// Anonymous builds an AuditInfo for unauthenticated requests (e.g., portal login) where no identity exists yet.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for background/system operations such as the cleanup sweep.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
