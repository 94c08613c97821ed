package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mdmc/smartlinks/internal/handler/dto"
	"github.com/mdmc/smartlinks/internal/model"
	"github.com/mdmc/smartlinks/internal/service"
)

// User-facing messages for the track endpoint.
const (
	msgSuccess          = "Clic enregistré avec succès"
	msgMethodNotAllowed = "Méthode non autorisée. Utilisez POST."
	msgMissingFields    = "smartlinkId et serviceName sont requis."
	msgInvalidID        = "Format de smartlinkId invalide."
	msgServiceNotFound  = "Service non trouvé pour ce SmartLink."
	msgInternalError    = "Erreur interne du serveur"
)

// defaultMaxBodyBytes caps the track request body at 1 MiB when no limit
// is configured.
const defaultMaxBodyBytes = 1 << 20

// TrackHandler handles click-tracking requests.
type TrackHandler struct {
	svc          *service.TrackService
	logger       *slog.Logger
	maxBodyBytes int64

	// exposeErrors echoes internal error detail to the client.
	// Enabled only outside production.
	exposeErrors bool
}

// NewTrackHandler creates a new TrackHandler. maxBodyBytes bounds the
// request body; zero or negative falls back to the 1 MiB default.
func NewTrackHandler(svc *service.TrackService, logger *slog.Logger, maxBodyBytes int64, exposeErrors bool) *TrackHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &TrackHandler{
		svc:          svc,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
		exposeErrors: exposeErrors,
	}
}

// TrackClick handles POST /api/track/click.
//
// The response body always carries success and destinationUrl, with
// destinationUrl empty exactly when success is false.
func (h *TrackHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeFailure(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req dto.TrackClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	// Validation order matters: presence first, then format.
	if req.SmartlinkID == "" || req.ServiceName == "" {
		h.writeFailure(w, http.StatusBadRequest, msgMissingFields)
		return
	}
	if !model.IsValidSmartlinkID(req.SmartlinkID) {
		h.writeFailure(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}

	result, err := h.svc.TrackClick(r.Context(), service.TrackClickInput{
		SmartlinkID:        req.SmartlinkID,
		ServiceName:        req.ServiceName,
		ServiceDisplayName: req.ServiceDisplayName,
		UserAgent:          userAgent,
		SessionID:          req.SessionID,
		ClientIP:           getClientIP(r),
		ClickedAt:          parseTimestamp(req.Timestamp),
	})
	if err != nil {
		h.handleTrackError(w, req.SmartlinkID, req.ServiceName, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ClickTrackingResponse{
		Success:        true,
		DestinationURL: result.DestinationURL,
		TrackingID:     result.TrackingID,
		Message:        msgSuccess,
	})
}

// handleTrackError maps pipeline errors to HTTP outcomes.
func (h *TrackHandler) handleTrackError(w http.ResponseWriter, smartlinkID, serviceName string, err error) {
	if errors.Is(err, service.ErrServiceNotFound) {
		h.logger.Info("track_not_found",
			"smartlink_id", smartlinkID,
			"service", serviceName,
		)
		h.writeFailure(w, http.StatusNotFound, msgServiceNotFound)
		return
	}

	h.logger.Error("track_error",
		"smartlink_id", smartlinkID,
		"service", serviceName,
		"error", err,
	)

	message := msgInternalError
	if h.exposeErrors {
		message = msgInternalError + ": " + err.Error()
	}
	h.writeFailure(w, http.StatusInternalServerError, message)
}

// writeFailure writes a failed ClickTrackingResponse.
func (h *TrackHandler) writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ClickTrackingResponse{
		Success:        false,
		DestinationURL: "",
		Message:        message,
	})
}

// parseTimestamp parses the client-supplied ISO-8601 timestamp,
// falling back to the server clock when absent or malformed.
func parseTimestamp(raw string) time.Time {
	if raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}
