package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Problem type URIs exposed by every handler.
const (
	ProblemTypeValidation      = "https://agencydesk.dev/problems/validation-error"
	ProblemTypeUnauthenticated = "https://agencydesk.dev/problems/unauthenticated"
	ProblemTypeUnauthorized    = "https://agencydesk.dev/problems/unauthorized"
	ProblemTypeNotFound        = "https://agencydesk.dev/problems/not-found"
	ProblemTypeRateLimited     = "https://agencydesk.dev/problems/rate-limited"
	ProblemTypeExpiredInvalid  = "https://agencydesk.dev/problems/expired-or-invalid"
	ProblemTypeConflict        = "https://agencydesk.dev/problems/conflict"
	ProblemTypeInternal        = "https://agencydesk.dev/problems/internal-error"
)

// Problem is an RFC 7807 style error payload.
type Problem struct {
	Type              string              `json:"type"`
	Title             string              `json:"title"`
	Status            int                 `json:"status"`
	Detail            string              `json:"detail,omitempty"`
	Fields            map[string][]string `json:"fields,omitempty"`
	RetryAfterSeconds *int                `json:"retryAfterSeconds,omitempty"`
}

// WriteJSON serializes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteProblem serializes a Problem with its status code and content type.
func WriteProblem(w http.ResponseWriter, problem Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	if problem.RetryAfterSeconds != nil {
		w.Header().Set("Retry-After", strconv.Itoa(*problem.RetryAfterSeconds))
	}
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// Unauthenticated reports a request with no usable identity.
func Unauthenticated(w http.ResponseWriter) {
	WriteProblem(w, Problem{
		Type:   ProblemTypeUnauthenticated,
		Title:  "Unauthenticated",
		Status: http.StatusUnauthorized,
		Detail: "authentication is required",
	})
}

// Unauthorized reports an authenticated caller lacking a permission or feature.
func Unauthorized(w http.ResponseWriter, detail string) {
	WriteProblem(w, Problem{
		Type:   ProblemTypeUnauthorized,
		Title:  "Forbidden",
		Status: http.StatusForbidden,
		Detail: detail,
	})
}

// NotFound reports a missing resource. Cross-tenant mismatches use the same
// payload so existence never leaks across tenants.
func NotFound(w http.ResponseWriter) {
	WriteProblem(w, Problem{
		Type:   ProblemTypeNotFound,
		Title:  "Not found",
		Status: http.StatusNotFound,
	})
}

// RateLimited reports a throttled request with a retry hint.
func RateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	WriteProblem(w, Problem{
		Type:              ProblemTypeRateLimited,
		Title:             "Too many requests",
		Status:            http.StatusTooManyRequests,
		RetryAfterSeconds: &retryAfterSeconds,
	})
}

// ExpiredOrInvalid reports a rejected token or code without saying which check failed.
func ExpiredOrInvalid(w http.ResponseWriter) {
	WriteProblem(w, Problem{
		Type:   ProblemTypeExpiredInvalid,
		Title:  "Expired or invalid",
		Status: http.StatusUnauthorized,
		Detail: "the supplied code or token is expired or invalid",
	})
}

// Conflict reports a uniqueness collision on create or update.
func Conflict(w http.ResponseWriter, detail string) {
	WriteProblem(w, Problem{
		Type:   ProblemTypeConflict,
		Title:  "Conflict",
		Status: http.StatusConflict,
		Detail: detail,
	})
}

// Validation reports a malformed request payload with per-field messages.
func Validation(w http.ResponseWriter, fields map[string][]string) {
	WriteProblem(w, Problem{
		Type:   ProblemTypeValidation,
		Title:  "Invalid request",
		Status: http.StatusBadRequest,
		Fields: fields,
	})
}

// Internal reports an upstream failure generically; details belong in the server log only.
func Internal(w http.ResponseWriter) {
	WriteProblem(w, Problem{
		Type:   ProblemTypeInternal,
		Title:  "Internal error",
		Status: http.StatusInternalServerError,
	})
}
