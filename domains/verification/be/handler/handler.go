package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/loomworks/agencydesk/domains/verification/be/service"
	"github.com/loomworks/agencydesk/platform/go/httpapi"
	platformlogging "github.com/loomworks/agencydesk/platform/go/logging"
)

// Handler serves the public OTP endpoints under a resolved tenant.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("verification service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the OTP endpoints on a public, tenant-resolved router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/otp/request", h.request)
	r.Post("/otp/verify", h.verify)
}

type requestCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	var body requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.Validation(w, map[string][]string{"body": {"request body must be valid JSON"}})
		return
	}

	if err := h.svc.RequestCode(r.Context(), body.Email); err != nil {
		h.writeError(r.Context(), w, err, "otpRequest")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var body verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.Validation(w, map[string][]string{"body": {"request body must be valid JSON"}})
		return
	}

	if err := h.svc.VerifyCode(r.Context(), body.Email, body.OTP); err != nil {
		h.writeError(r.Context(), w, err, "otpVerify")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	logger := h.loggerFrom(ctx).With(zap.String("operation", op))

	var validationErr *service.ValidationError
	var rateLimitedErr *service.RateLimitedError
	switch {
	case errors.As(err, &validationErr):
		logger.Warn("verification request rejected", zap.Error(err))
		httpapi.Validation(w, validationErr.Fields)
	case errors.As(err, &rateLimitedErr):
		logger.Warn("verification rate limited", zap.Duration("retry_after", rateLimitedErr.RetryAfter))
		httpapi.RateLimited(w, int(math.Ceil(rateLimitedErr.RetryAfter.Seconds())))
	case errors.Is(err, service.ErrCodeInvalid):
		// No detail on purpose: wrong vs expired must read the same.
		logger.Info("verification code rejected")
		httpapi.ExpiredOrInvalid(w)
	default:
		logger.Error("verification operation failed", zap.Error(err))
		httpapi.Internal(w)
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
