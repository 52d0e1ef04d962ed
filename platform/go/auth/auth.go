package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Portal credential headers. Both must be present for a request to carry a
// portal identity; one without the other resolves to no identity.
const (
	HeaderPortalClientID     = "x-portal-client-id"
	HeaderPortalSessionToken = "x-portal-session-token"
)

// IdentityKind says who is calling: a platform user, an external portal
// client, or nobody. A request resolves to at most one kind.
type IdentityKind string

const (
	IdentityPlatform IdentityKind = "platform"
	IdentityPortal   IdentityKind = "portal"
	IdentityNone     IdentityKind = "none"
)

// UserCredentials carries the verified claims of a platform user token.
type UserCredentials struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          *string
	IsAdmin       bool
}

// PortalCredentials carries the raw portal session material extracted from the
// request headers. The raw token is handed to the session store for digest
// comparison and must never be logged or persisted.
type PortalCredentials struct {
	ClientID uuid.UUID
	RawToken string
}

// AuthContext is the single identity record produced by the session resolver
// and threaded through every downstream component. Exactly one of User or
// Portal is set when Kind is not IdentityNone.
type AuthContext struct {
	Kind   IdentityKind
	User   *UserCredentials
	Portal *PortalCredentials
}

type ctxKey struct{}

// IntoContext stores the AuthContext on the context.
func IntoContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext extracts the AuthContext; absent means the resolver never ran.
func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(ctxKey{}).(AuthContext)
	return ac, ok
}

// Resolver turns an incoming request into an AuthContext. It is a pure read of
// request metadata: missing or malformed credentials resolve to IdentityNone
// and never to an error, so boundary handlers decide whether to reject.
type Resolver struct {
	verify  VerifyFunc
	extract ExtractFunc
}

// NewResolver builds a Resolver around the configured token verifier.
func NewResolver(verify VerifyFunc, extract ExtractFunc) *Resolver {
	if verify == nil {
		panic("auth.NewResolver: verify func must not be nil")
	}
	if extract == nil {
		extract = DefaultCredentialExtractor
	}
	return &Resolver{verify: verify, extract: extract}
}

// Resolve produces the request's identity. A verified bearer token wins;
// otherwise the portal header pair is consulted, then the browser session
// cookie. Anything else is IdentityNone.
func (r *Resolver) Resolve(req *http.Request) AuthContext {
	if token, found := ExtractBearerToken(req); found {
		claims, err := r.verify(req.Context(), token)
		if err == nil {
			if creds, err := r.extract(claims); err == nil {
				return AuthContext{Kind: IdentityPlatform, User: creds}
			}
		}
		// A bearer token that fails verification does not fall through to the
		// portal path: mixing credential kinds on one request is not supported.
		return AuthContext{Kind: IdentityNone}
	}

	clientIDRaw := req.Header.Get(HeaderPortalClientID)
	rawToken := req.Header.Get(HeaderPortalSessionToken)
	if clientIDRaw == "" || rawToken == "" {
		// Browser sessions carry the token in the named cookie instead of a
		// bearer header. Explicit portal headers outrank the cookie, so this
		// fallback only runs when neither header is present.
		if token, found := SessionCookie(req); found {
			claims, err := r.verify(req.Context(), token)
			if err == nil {
				if creds, err := r.extract(claims); err == nil {
					return AuthContext{Kind: IdentityPlatform, User: creds}
				}
			}
		}
		return AuthContext{Kind: IdentityNone}
	}

	clientID, err := uuid.Parse(clientIDRaw)
	if err != nil {
		return AuthContext{Kind: IdentityNone}
	}

	return AuthContext{
		Kind:   IdentityPortal,
		Portal: &PortalCredentials{ClientID: clientID, RawToken: rawToken},
	}
}

// Middleware resolves the caller identity once per request and stores it on
// the context. It never rejects; authorization gates run later in the chain.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := IntoContext(req.Context(), r.Resolve(req))
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}
