package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/loomworks/agencydesk/domains/maintenance/be/service"
	platformauth "github.com/loomworks/agencydesk/platform/go/auth"
	"github.com/loomworks/agencydesk/platform/go/httpapi"
	platformlogging "github.com/loomworks/agencydesk/platform/go/logging"
)

// Handler serves the internal cleanup endpoint. It is not part of the
// public API surface and authenticates with a shared secret, typically
// presented by a scheduler.
type Handler struct {
	svc    *service.Service
	secret string
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, secret string, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("maintenance service is required")
	}
	if secret == "" {
		panic("cleanup secret is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, secret: secret, logger: logger}
}

// Routes mounts the cleanup endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/cleanup", h.cleanup)
}

func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	token, ok := platformauth.ExtractBearerToken(r)
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		httpapi.Unauthenticated(w)
		return
	}

	result, err := h.svc.Cleanup(r.Context())
	if err != nil {
		h.loggerFrom(r.Context()).Error("cleanup sweep failed", zap.Error(err))
		httpapi.Internal(w)
		return
	}

	h.loggerFrom(r.Context()).Info("cleanup sweep finished",
		zap.Int64("otp_codes", result.OTPCodes),
		zap.Int64("rate_limits", result.RateLimits),
		zap.Int64("portal_sessions", result.PortalSessions),
	)

	httpapi.WriteJSON(w, http.StatusOK, map[string]int64{
		"otpCodes":       result.OTPCodes,
		"rateLimits":     result.RateLimits,
		"portalSessions": result.PortalSessions,
	})
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
