package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"parkhub/internal/violations/service"
	httputil "parkhub/pkg/http"
	"parkhub/pkg/logger"
)

type ViolationHandler struct {
	service service.ViolationService
	log     *logger.Logger
}

func NewViolationHandler(service service.ViolationService, log *logger.Logger) *ViolationHandler {
	return &ViolationHandler{
		service: service,
		log:     log,
	}
}

func (h *ViolationHandler) Scan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	at := time.Time{}
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
				Error: "The 'at' query parameter must be RFC 3339 formatted",
			}); writeErr != nil {
				h.log.Error("failed to write JSON response", "handler", "Scan", "operation", "WriteJSON", "error", writeErr)
			}
			return
		}
		at = parsed
	}

	violations, err := h.service.Scan(r.Context(), ps.ByName("id"), at)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Scan", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, violations); err != nil {
		h.log.Error("failed to write success response", "handler", "Scan", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ViolationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/facilities/id/:id/violations", h.Scan)
}
