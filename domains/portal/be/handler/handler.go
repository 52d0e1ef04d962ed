package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loomworks/agencydesk/domains/portal/be/service"
	platformauth "github.com/loomworks/agencydesk/platform/go/auth"
	"github.com/loomworks/agencydesk/platform/go/httpapi"
	platformlogging "github.com/loomworks/agencydesk/platform/go/logging"
	"github.com/loomworks/agencydesk/platform/go/persistence"
	"github.com/loomworks/agencydesk/platform/go/tenant"
	tenantmw "github.com/loomworks/agencydesk/platform/go/tenant/middleware"
)

// Handler serves the client portal flows.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("portal service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// PublicRoutes mounts login on a public, tenant-resolved router.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/portal/login", h.login)
}

// SessionRoutes mounts endpoints requiring a validated portal session.
func (h *Handler) SessionRoutes(r chi.Router) {
	r.Get("/portal/me", h.me)
	r.Get("/portal/contracts", h.contracts)
}

// LogoutRoute mounts logout separately: it answers 200 whether or not
// the presented session was still valid.
func (h *Handler) LogoutRoute(r chi.Router) {
	r.Post("/portal/logout", h.logout)
}

type loginRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type clientResponse struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenantId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
}

type contractResponse struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	AmountCents  int64      `json:"amountCents"`
	ViewCount    int        `json:"viewCount"`
	LastViewedAt *time.Time `json:"lastViewedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	info, ok := tenant.FromContext(r.Context())
	if !ok {
		httpapi.Internal(w)
		return
	}

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.Validation(w, map[string][]string{"body": {"request body must be valid JSON"}})
		return
	}

	session, err := h.svc.Login(r.Context(), info.TenantID, body.Email, body.OTP)
	if err != nil {
		h.writeLoginError(r.Context(), w, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"client":    toClientResponse(session.Client),
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if authCtx, ok := platformauth.FromContext(r.Context()); ok && authCtx.Portal != nil {
		if err := h.svc.Logout(r.Context(), authCtx.Portal.ClientID, authCtx.Portal.RawToken); err != nil {
			// Logout never fails from the caller's point of view.
			h.loggerFrom(r.Context()).Error("revoke portal session", zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	client, ok := tenantmw.ClientFromContext(r.Context())
	if !ok {
		httpapi.Unauthenticated(w)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toClientResponse(client))
}

func (h *Handler) contracts(w http.ResponseWriter, r *http.Request) {
	client, ok := tenantmw.ClientFromContext(r.Context())
	if !ok {
		httpapi.Unauthenticated(w)
		return
	}

	contracts, err := h.svc.Contracts(r.Context(), client)
	if err != nil {
		h.loggerFrom(r.Context()).Error("list portal contracts", zap.Error(err))
		httpapi.Internal(w)
		return
	}

	items := make([]contractResponse, 0, len(contracts))
	for _, contract := range contracts {
		items = append(items, toContractResponse(contract))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) writeLoginError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := h.loggerFrom(ctx).With(zap.String("operation", "portalLogin"))

	var rateLimitedErr *service.RateLimitedError
	switch {
	case errors.As(err, &rateLimitedErr):
		logger.Warn("portal login rate limited", zap.Duration("retry_after", rateLimitedErr.RetryAfter))
		httpapi.RateLimited(w, int(math.Ceil(rateLimitedErr.RetryAfter.Seconds())))
	case errors.Is(err, service.ErrLoginInvalid):
		// Unknown email, bad code and disabled client read the same.
		logger.Info("portal login rejected")
		httpapi.ExpiredOrInvalid(w)
	default:
		logger.Error("portal login failed", zap.Error(err))
		httpapi.Internal(w)
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

func toClientResponse(client persistence.PortalClient) clientResponse {
	return clientResponse{
		ID:          client.ClientID,
		TenantID:    client.TenantID,
		Email:       client.Email,
		DisplayName: client.DisplayName,
	}
}

func toContractResponse(contract persistence.Contract) contractResponse {
	return contractResponse{
		ID:           contract.ContractID,
		Title:        contract.Title,
		Status:       contract.Status,
		AmountCents:  contract.AmountCents,
		ViewCount:    contract.ViewCount,
		LastViewedAt: contract.LastViewedAt,
		CreatedAt:    contract.CreatedAt,
	}
}
