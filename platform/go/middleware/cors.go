package middleware

import (
	"net/http"

	platformauth "github.com/loomworks/agencydesk/platform/go/auth"
	"github.com/loomworks/agencydesk/platform/go/tenant"
)

func DefaultCORS() func(http.Handler) http.Handler {
	// Keep it simple; tighten for prod
	allowHeaders := "Authorization,Content-Type," +
		tenant.HeaderTenantID + "," +
		platformauth.HeaderPortalClientID + "," +
		platformauth.HeaderPortalSessionToken
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
