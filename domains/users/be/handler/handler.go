package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loomworks/agencydesk/domains/users/be/service"
	platformauth "github.com/loomworks/agencydesk/platform/go/auth"
	"github.com/loomworks/agencydesk/platform/go/authz"
	"github.com/loomworks/agencydesk/platform/go/httpapi"
	platformlogging "github.com/loomworks/agencydesk/platform/go/logging"
)

// Handler serves the member self endpoint and the admin user CRUD.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("users service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the self endpoint for any authenticated platform user.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/users/me", h.me)
}

// SignOutRoute mounts global sign-out. It only expires the browser session
// cookie, so it succeeds for any caller, authenticated or not.
func (h *Handler) SignOutRoute(r chi.Router) {
	r.Post("/auth/signout", h.signOut)
}

// AdminRoutes mounts the user CRUD; callers gate these with the
// users-manage permission.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/users", h.create)
	r.Get("/users", h.list)
	r.Get("/users/{userID}", h.get)
	r.Patch("/users/{userID}", h.update)
	r.Delete("/users/{userID}", h.deactivate)
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type createUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	FullName *string `json:"fullName"`
	Role     *string `json:"role"`
}

// me returns the profile the auth middleware resolved for this request.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpapi.Unauthenticated(w)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, userResponse{
		ID:        actor.UserID,
		TenantID:  actor.TenantID,
		Email:     actor.Email,
		FullName:  actor.FullName,
		Role:      actor.Role,
		CreatedAt: actor.CreatedAt,
		UpdatedAt: actor.UpdatedAt,
	})
}

// signOut expires the named session cookie. Token-carrying clients simply
// drop their bearer token; there is no server-side state to clear.
func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	platformauth.ExpireSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.Validation(w, map[string][]string{"body": {"request body must be valid JSON"}})
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateInput{
		Email:    body.Email,
		FullName: body.FullName,
		Role:     body.Role,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, "usersCreate")
		return
	}

	w.Header().Set("Location", "/api/v1/admin/users/"+created.ID.String())
	httpapi.WriteJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{}
	query := r.URL.Query()
	if page := query.Get("page"); page != "" {
		opts.Page = atoiOrZero(page)
	}
	if pageSize := query.Get("pageSize"); pageSize != "" {
		opts.PageSize = atoiOrZero(pageSize)
	}
	if email := strings.TrimSpace(query.Get("email")); email != "" {
		opts.Email = &email
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(r.Context(), w, err, "usersList")
		return
	}

	items := make([]userResponse, 0, len(result.Users))
	for _, user := range result.Users {
		items = append(items, toResponse(user))
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"totalItems": result.TotalItems,
		"totalPages": result.TotalPages,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	user, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, err, "usersGet")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var body updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.Validation(w, map[string][]string{"body": {"request body must be valid JSON"}})
		return
	}

	updated, err := h.svc.Update(r.Context(), id, service.UpdateInput{
		FullName: body.FullName,
		Role:     body.Role,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, "usersUpdate")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		h.writeError(r.Context(), w, err, "usersDeactivate")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	logger := h.loggerFrom(ctx).With(zap.String("operation", op))

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.Warn("users request rejected", zap.Error(err))
		httpapi.Validation(w, validationErr.Fields)
	case errors.Is(err, service.ErrNotFound):
		logger.Info("user not found", zap.Error(err))
		httpapi.NotFound(w)
	case errors.Is(err, service.ErrConflict):
		logger.Warn("user conflict", zap.Error(err))
		httpapi.Conflict(w, "a user with this email already exists")
	default:
		logger.Error("users operation failed", zap.Error(err))
		httpapi.Internal(w)
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpapi.Validation(w, map[string][]string{"userID": {"userID must be a uuid"}})
		return uuid.Nil, false
	}
	return id, true
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func toResponse(user service.User) userResponse {
	return userResponse{
		ID:        user.ID,
		TenantID:  user.TenantID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
