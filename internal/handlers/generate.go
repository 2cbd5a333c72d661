package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/jordanurbs/aicaptains-api/internal/i18n"
	"github.com/jordanurbs/aicaptains-api/internal/middleware"
	"github.com/jordanurbs/aicaptains-api/internal/models"
	"github.com/jordanurbs/aicaptains-api/internal/services/generate"
	"github.com/jordanurbs/aicaptains-api/internal/validate"
)

const serviceName = "generate-response"

// GenerateHandler serves the generate-response API.
type GenerateHandler struct {
	generator   generate.Service
	rateLimiter middleware.RateLimiter
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	logger      *logrus.Logger
	now         func() time.Time
}

// NewGenerateHandler creates the API handler.
func NewGenerateHandler(
	generator generate.Service,
	rateLimiter middleware.RateLimiter,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *GenerateHandler {
	return &GenerateHandler{
		generator:   generator,
		rateLimiter: rateLimiter,
		localizer:   localizer,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Register mounts the API routes on the router.
func (h *GenerateHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/generate-response", h.HandleGenerate).Methods(http.MethodPost)
	router.HandleFunc("/api/generate-response", h.HandleHealth).Methods(http.MethodGet)
}

// HandleHealth responds with a static healthy payload, unconditionally.
func (h *GenerateHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Service:   serviceName,
	})
}

// HandleGenerate runs the request pipeline: rate limit, validate, sanitize,
// generate, respond.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.RecordRequestDuration(time.Since(start))
	}()

	if !h.rateLimiter.AllowGlobal() {
		h.metrics.RecordRateLimitExceeded("global")
		h.respondError(w, http.StatusTooManyRequests, h.msg(i18n.MsgRateLimitExceeded), nil)
		return
	}

	clientID := middleware.ClientID(r)
	if !h.rateLimiter.Allow(clientID) {
		h.metrics.RecordRateLimitExceeded("client")
		h.respondError(w, http.StatusTooManyRequests, h.msg(i18n.MsgRateLimitExceeded), nil)
		return
	}

	req, err := validate.ParseGenerateRequest(r.Body)
	if err != nil {
		var validationErr *validate.ValidationError
		if errors.As(err, &validationErr) {
			h.respondError(w, http.StatusBadRequest, h.msg(i18n.MsgValidationFailed), validationErr.Details)
		} else {
			h.respondError(w, http.StatusBadRequest, h.msg(i18n.MsgInvalidBody), nil)
		}
		return
	}

	goal := validate.Sanitize(req.Goal)
	excuse := validate.Sanitize(req.Excuse)

	result, err := h.generator.Generate(r.Context(), goal, excuse, req.IsPresetExcuse)
	if err != nil {
		switch {
		case errors.Is(err, generate.ErrNotConfigured):
			h.logger.Error("Generation requested without an upstream API key configured")
			h.respondError(w, http.StatusServiceUnavailable, h.msg(i18n.MsgNotConfigured), nil)
		case errors.Is(err, generate.ErrEmptyCompletion):
			h.respondError(w, http.StatusBadGateway, h.msg(i18n.MsgEmptyCompletion), nil)
		default:
			h.logger.WithError(err).Error("Unhandled generation error")
			h.respondError(w, http.StatusInternalServerError, h.msg(i18n.MsgInternalError), nil)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, models.GenerateResponse{
		Success:  true,
		Response: result.Response,
		CTA:      result.CTA,
	})
}

func (h *GenerateHandler) msg(messageID string) string {
	return h.localizer.Get("", messageID, nil)
}

func (h *GenerateHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
	h.metrics.RecordRequest(status)
}

func (h *GenerateHandler) respondError(w http.ResponseWriter, status int, message string, details []string) {
	h.respondJSON(w, status, models.ErrorResponse{
		Success: false,
		Error:   message,
		Details: details,
	})
}
