package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loomworks/agencydesk/domains/contracts/be/service"
	"github.com/loomworks/agencydesk/platform/go/httpapi"
	platformlogging "github.com/loomworks/agencydesk/platform/go/logging"
	"github.com/loomworks/agencydesk/platform/go/tenant"
)

// Handler serves the platform contract CRUD and the public view counter.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("contracts service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// ReadRoutes mounts the read endpoints; callers gate these with the
// contracts feature and the view permission.
func (h *Handler) ReadRoutes(r chi.Router) {
	r.Get("/contracts", h.list)
	r.Get("/contracts/{contractID}", h.get)
}

// WriteRoutes carries the mutating endpoints so wiring can apply the
// manage permission separately from view.
func (h *Handler) WriteRoutes(r chi.Router) {
	r.Post("/contracts", h.create)
	r.Patch("/contracts/{contractID}", h.updateStatus)
}

// PublicRoutes mounts the view counter on a public, tenant-resolved router.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/contracts/{contractID}/view", h.recordView)
}

type contractResponse struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenantId"`
	ClientID     *uuid.UUID `json:"clientId,omitempty"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	AmountCents  int64      `json:"amountCents"`
	ViewCount    int        `json:"viewCount"`
	LastViewedAt *time.Time `json:"lastViewedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type createContractRequest struct {
	Title       string     `json:"title"`
	ClientID    *uuid.UUID `json:"clientId"`
	AmountCents int64      `json:"amountCents"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body createContractRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.Validation(w, map[string][]string{"body": {"request body must be valid JSON"}})
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateInput{
		Title:       body.Title,
		ClientID:    body.ClientID,
		AmountCents: body.AmountCents,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, "contractsCreate")
		return
	}

	w.Header().Set("Location", "/api/v1/contracts/"+created.ID.String())
	httpapi.WriteJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var clientID *uuid.UUID
	if raw := r.URL.Query().Get("clientId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpapi.Validation(w, map[string][]string{"clientId": {"clientId must be a uuid"}})
			return
		}
		clientID = &parsed
	}

	contracts, err := h.svc.List(r.Context(), clientID)
	if err != nil {
		h.writeError(r.Context(), w, err, "contractsList")
		return
	}

	items := make([]contractResponse, 0, len(contracts))
	for _, contract := range contracts {
		items = append(items, toResponse(contract))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	contract, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, err, "contractsGet")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(contract))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var body updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.Validation(w, map[string][]string{"body": {"request body must be valid JSON"}})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		h.writeError(r.Context(), w, err, "contractsUpdateStatus")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(updated))
}

// recordView counts a public open of a shared contract. The resolved
// tenant must own the row; anything else is a 404.
func (h *Handler) recordView(w http.ResponseWriter, r *http.Request) {
	info, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.Internal(w)
		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.RecordView(r.Context(), info.TenantID, id); err != nil {
		h.writeError(r.Context(), w, err, "contractsRecordView")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	logger := h.loggerFrom(ctx).With(zap.String("operation", op))

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.Warn("contracts request rejected", zap.Error(err))
		httpapi.Validation(w, validationErr.Fields)
	case errors.Is(err, service.ErrNotFound):
		logger.Info("contract not found", zap.Error(err))
		httpapi.NotFound(w)
	default:
		logger.Error("contracts operation failed", zap.Error(err))
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
	id, err := uuid.Parse(chi.URLParam(r, "contractID"))
	if err != nil {
		httpapi.Validation(w, map[string][]string{"contractID": {"contractID must be a uuid"}})
		return uuid.Nil, false
	}
	return id, true
}

func toResponse(contract service.Contract) contractResponse {
	return contractResponse{
		ID:           contract.ID,
		TenantID:     contract.TenantID,
		ClientID:     contract.ClientID,
		Title:        contract.Title,
		Status:       contract.Status,
		AmountCents:  contract.AmountCents,
		ViewCount:    contract.ViewCount,
		LastViewedAt: contract.LastViewedAt,
		CreatedAt:    contract.CreatedAt,
		UpdatedAt:    contract.UpdatedAt,
	}
}
