package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"parkhub/internal/availability/service"
	apperrors "parkhub/pkg/errors"
	httputil "parkhub/pkg/http"
	"parkhub/pkg/logger"
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

type instantResponse struct {
	FacilityID      string    `json:"facility_id"`
	At              time.Time `json:"at"`
	AvailableSpaces int       `json:"available_spaces"`
}

type windowResponse struct {
	FacilityID string    `json:"facility_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Needed     int       `json:"needed"`
	Available  bool      `json:"available"`
}

// Availability serves both query shapes: `?at=` for an instant count and
// `?start=&end=[&spaces=]` for a window check.
func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	facilityID := ps.ByName("id")

	start, err := httputil.ExtractTime(r, "start")
	if err != nil {
		h.writeError(w, apperrors.InvalidInput("invalid start format, must be RFC3339"))
		return
	}
	end, err := httputil.ExtractTime(r, "end")
	if err != nil {
		h.writeError(w, apperrors.InvalidInput("invalid end format, must be RFC3339"))
		return
	}

	if !start.IsZero() || !end.IsZero() {
		if start.IsZero() || end.IsZero() {
			h.writeError(w, apperrors.InvalidInput("window queries require both 'start' and 'end'"))
			return
		}

		needed := 1
		if spacesStr := r.URL.Query().Get("spaces"); spacesStr != "" {
			n, err := httputil.ExtractFloat(r, "spaces", 1)
			if err != nil || n < 1 {
				h.writeError(w, apperrors.InvalidInput("invalid spaces parameter"))
				return
			}
			needed = int(n)
		}

		available, err := h.service.HasSpacesDuring(r.Context(), facilityID, start, end, needed)
		if err != nil {
			h.writeError(w, err)
			return
		}

		if err := httputil.WriteSuccess(w, windowResponse{
			FacilityID: facilityID,
			StartTime:  start,
			EndTime:    end,
			Needed:     needed,
			Available:  available,
		}); err != nil {
			h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
		}
		return
	}

	at, err := httputil.ExtractTime(r, "at")
	if err != nil {
		h.writeError(w, apperrors.InvalidInput("invalid at format, must be RFC3339"))
		return
	}
	if at.IsZero() {
		at = time.Now()
	}

	available, err := h.service.SpacesAtCached(r.Context(), facilityID, at)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, instantResponse{
		FacilityID:      facilityID,
		At:              at,
		AvailableSpaces: available,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/facilities/id/:id/availability", h.Availability)
}
