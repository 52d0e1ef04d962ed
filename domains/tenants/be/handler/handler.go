package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loomworks/agencydesk/domains/tenants/be/service"
	"github.com/loomworks/agencydesk/platform/go/httpapi"
	platformlogging "github.com/loomworks/agencydesk/platform/go/logging"
	"github.com/loomworks/agencydesk/platform/go/tenant"
)

// Handler serves the admin tenant registry and the public branding endpoint.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// AdminRoutes mounts the registry CRUD; callers gate these with the
// tenant-manage permission.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/tenants", h.create)
	r.Get("/tenants", h.list)
	r.Get("/tenants/{tenantID}", h.get)
	r.Patch("/tenants/{tenantID}", h.update)
	r.Delete("/tenants/{tenantID}", h.deactivate)
}

// PublicRoutes mounts endpoints served under a resolved public tenant.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/tenant", h.publicBranding)
}

type tenantResponse struct {
	ID           uuid.UUID `json:"id"`
	Slug         string    `json:"slug"`
	DisplayName  string    `json:"displayName"`
	Subdomain    string    `json:"subdomain"`
	LogoURL      *string   `json:"logoUrl,omitempty"`
	PrimaryColor *string   `json:"primaryColor,omitempty"`
	Plan         string    `json:"plan"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type createTenantRequest struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"displayName"`
	Subdomain   string `json:"subdomain"`
	Plan        string `json:"plan"`
}

type updateTenantRequest struct {
	DisplayName  *string `json:"displayName"`
	LogoURL      *string `json:"logoUrl"`
	PrimaryColor *string `json:"primaryColor"`
	Plan         *string `json:"plan"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.Validation(w, map[string][]string{"body": {"request body must be valid JSON"}})
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateInput{
		Slug:        body.Slug,
		DisplayName: body.DisplayName,
		Subdomain:   body.Subdomain,
		Plan:        body.Plan,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, "tenantsCreate")
		return
	}

	w.Header().Set("Location", "/api/v1/admin/tenants/"+created.ID.String())
	httpapi.WriteJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{}
	if page := r.URL.Query().Get("page"); page != "" {
		opts.Page = atoiOrZero(page)
	}
	if pageSize := r.URL.Query().Get("pageSize"); pageSize != "" {
		opts.PageSize = atoiOrZero(pageSize)
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(r.Context(), w, err, "tenantsList")
		return
	}

	items := make([]tenantResponse, 0, len(result.Tenants))
	for _, t := range result.Tenants {
		items = append(items, toResponse(t))
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

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, err, "tenantsGet")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var body updateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.Validation(w, map[string][]string{"body": {"request body must be valid JSON"}})
		return
	}

	updated, err := h.svc.Update(r.Context(), id, service.UpdateInput{
		DisplayName:  body.DisplayName,
		LogoURL:      body.LogoURL,
		PrimaryColor: body.PrimaryColor,
		Plan:         body.Plan,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, "tenantsUpdate")
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
		h.writeError(r.Context(), w, err, "tenantsDeactivate")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// publicBranding returns the branding payload the portal shell renders
// before any login.
func (h *Handler) publicBranding(w http.ResponseWriter, r *http.Request) {
	info, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.Internal(w)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"id":           info.TenantID,
		"slug":         info.Slug,
		"displayName":  info.DisplayName,
		"subdomain":    info.Subdomain,
		"logoUrl":      info.LogoURL,
		"primaryColor": info.PrimaryColor,
	})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	logger := h.loggerFrom(ctx).With(zap.String("operation", op))

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.Warn("tenants request rejected", zap.Error(err))
		httpapi.Validation(w, validationErr.Fields)
	case errors.Is(err, service.ErrNotFound):
		logger.Info("tenant not found", zap.Error(err))
		httpapi.NotFound(w)
	case errors.Is(err, service.ErrConflict):
		logger.Warn("tenant conflict", zap.Error(err))
		httpapi.Conflict(w, "tenant slug or subdomain already exists")
	default:
		logger.Error("tenants operation failed", zap.Error(err))
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
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpapi.Validation(w, map[string][]string{"tenantID": {"tenantID must be a uuid"}})
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

func toResponse(t service.Tenant) tenantResponse {
	return tenantResponse{
		ID:           t.ID,
		Slug:         t.Slug,
		DisplayName:  t.DisplayName,
		Subdomain:    t.Subdomain,
		LogoURL:      t.LogoURL,
		PrimaryColor: t.PrimaryColor,
		Plan:         t.Plan,
		IsActive:     t.IsActive,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
