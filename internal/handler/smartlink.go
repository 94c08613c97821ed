package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mdmc/smartlinks/internal/handler/dto"
	"github.com/mdmc/smartlinks/internal/model"
	"github.com/mdmc/smartlinks/internal/service"
)

// SmartLinkHandler serves read-only smartlink lookups.
type SmartLinkHandler struct {
	svc    *service.TrackService
	logger *slog.Logger
}

// NewSmartLinkHandler creates a new SmartLinkHandler.
func NewSmartLinkHandler(svc *service.TrackService, logger *slog.Logger) *SmartLinkHandler {
	return &SmartLinkHandler{svc: svc, logger: logger}
}

// Get handles GET /api/smartlinks/{id}.
func (h *SmartLinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.IsValidSmartlinkID(id) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid smartlink id",
			Code:  "invalid_id",
		})
		return
	}

	link, err := h.svc.GetSmartLink(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
				Error: "smartlink not found",
				Code:  "not_found",
			})
			return
		}
		h.logger.Error("smartlink_get_error", "smartlink_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "internal_error",
		})
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSmartLinkResponse(link))
}
