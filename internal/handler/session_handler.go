package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rob0403/LiveVotingRW/internal/middleware"
	"github.com/rob0403/LiveVotingRW/internal/service"
	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
	"github.com/rob0403/LiveVotingRW/pkg/logger"
)

// SessionHandler exposes session creation and pin resolution
type SessionHandler struct {
	registry       *service.RegistryService
	player         *service.PlayerService
	attendees      service.AttendeeTracker
	attendeeWindow time.Duration
	log            *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *service.RegistryService, player *service.PlayerService, attendees service.AttendeeTracker, attendeeWindow time.Duration, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		registry:       registry,
		player:         player,
		attendees:      attendees,
		attendeeWindow: attendeeWindow,
		log:            log,
	}
}

// Create handles POST /api/v1/sessions (presenter only)
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid request body", nil), h.log)
		return
	}

	session, err := h.registry.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// State handles GET /api/v1/sessions/{pin}. This is the voter polling
// endpoint; every call doubles as a heartbeat for the attendee counter.
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pin := chi.URLParam(r, "pin")
	voterID := middleware.VoterID(r)

	session, err := h.registry.Resolve(ctx, pin)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	// Heartbeat is independent of anything else succeeding on this request
	if err := h.attendees.RecordHeartbeat(ctx, session.ID, voterID); err != nil {
		h.log.WithError(err).Warn("Failed to record attendee heartbeat")
	}

	state, err := h.player.State(ctx, session, voterID, h.attendees, h.attendeeWindow)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, state)
}
