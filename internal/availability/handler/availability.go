package handler

import (
	"encoding/json"
	"net/http"

	"bookit/internal/availability/service"
	apperrors "bookit/pkg/errors"
	httputil "bookit/pkg/http"
	"bookit/pkg/logger"
	"bookit/pkg/middleware"
	"bookit/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) AddRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "AddRule")
	if !ok {
		return
	}

	var req model.AvailabilityRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
			Code:  apperrors.CodeInvalidInput,
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "AddRule", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	rule, err := h.service.AddRule(r.Context(), actor, ps.ByName("resource_id"), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "AddRule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, rule); err != nil {
		h.log.Error("failed to write created response", "handler", "AddRule", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) ListRules(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "ListRules")
	if !ok {
		return
	}

	rules, err := h.service.ListRules(r.Context(), actor, ps.ByName("resource_id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListRules", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rules); err != nil {
		h.log.Error("failed to write success response", "handler", "ListRules", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) DeleteRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "DeleteRule")
	if !ok {
		return
	}

	if err := h.service.DeleteRule(r.Context(), actor, ps.ByName("resource_id"), ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteRule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/resources/:resource_id/availability", h.AddRule)
	router.GET("/api/v1/resources/:resource_id/availability", h.ListRules)
	router.DELETE("/api/v1/resources/:resource_id/availability/:id", h.DeleteRule)
}

func (h *AvailabilityHandler) actor(w http.ResponseWriter, r *http.Request, handler string) (model.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if ok {
		return actor, true
	}
	if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Missing caller identity")); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
	return model.Actor{}, false
}
