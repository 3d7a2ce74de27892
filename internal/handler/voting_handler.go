package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rob0403/LiveVotingRW/internal/domain"
	"github.com/rob0403/LiveVotingRW/internal/middleware"
	"github.com/rob0403/LiveVotingRW/internal/service"
	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
	"github.com/rob0403/LiveVotingRW/pkg/logger"
)

// VotingHandler exposes the voter-facing vote paths
type VotingHandler struct {
	registry  *service.RegistryService
	player    *service.PlayerService
	attendees service.AttendeeTracker
	log       *logger.Logger
}

// NewVotingHandler creates a new voting handler
func NewVotingHandler(registry *service.RegistryService, player *service.PlayerService, attendees service.AttendeeTracker, log *logger.Logger) *VotingHandler {
	return &VotingHandler{
		registry:  registry,
		player:    player,
		attendees: attendees,
		log:       log,
	}
}

// Cast handles POST /api/v1/sessions/{pin}/votes
func (h *VotingHandler) Cast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pin := chi.URLParam(r, "pin")
	voterID := middleware.VoterID(r)

	var req domain.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid request body", nil), h.log)
		return
	}

	session, err := h.registry.Resolve(ctx, pin)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	if err := h.attendees.RecordHeartbeat(ctx, session.ID, voterID); err != nil {
		h.log.WithError(err).Warn("Failed to record attendee heartbeat")
	}

	result, err := h.player.CastVote(ctx, session, voterID, req)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// Clear handles DELETE /api/v1/sessions/{pin}/votes
func (h *VotingHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pin := chi.URLParam(r, "pin")
	voterID := middleware.VoterID(r)

	session, err := h.registry.Resolve(ctx, pin)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	if err := h.attendees.RecordHeartbeat(ctx, session.ID, voterID); err != nil {
		h.log.WithError(err).Warn("Failed to record attendee heartbeat")
	}

	if err := h.player.ClearVote(ctx, session, voterID); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
