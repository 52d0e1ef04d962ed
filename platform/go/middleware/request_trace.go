package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformauth "github.com/loomworks/agencydesk/platform/go/auth"
	platformlogging "github.com/loomworks/agencydesk/platform/go/logging"
	"github.com/loomworks/agencydesk/platform/go/requesttrace"
)

// RequestTrace populates the context with request-scoped AuditInfo so services and repositories can stamp audit fields.
// It should run after authentication middleware so resolved identities are available when present.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := platformlogging.FromRequest(r, nil)
		requestID, _ := r.Context().Value(middleware.RequestIDKey).(string)

		var audit requesttrace.AuditInfo
		if authCtx, ok := platformauth.FromContext(r.Context()); ok {
			var err error
			audit, err = requesttrace.FromAuth(authCtx, requestID)
			if err != nil {
				if logger != nil {
					logger.Error("build audit info from identity", zap.Error(err))
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		} else {
			audit = requesttrace.Anonymous(requestID)
		}

		ctx := requesttrace.IntoContext(r.Context(), audit)
		if logger != nil {
			fields := []zap.Field{zap.String("actor_kind", string(audit.ActorKind))}
			if audit.ActorID != nil && *audit.ActorID != "" {
				fields = append(fields, zap.String("actor_id", *audit.ActorID))
			}
			logger = logger.With(fields...)
			ctx = platformlogging.WithLogger(ctx, logger)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
