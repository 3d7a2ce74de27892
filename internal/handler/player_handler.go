package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rob0403/LiveVotingRW/internal/domain"
	"github.com/rob0403/LiveVotingRW/internal/service"
	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
	"github.com/rob0403/LiveVotingRW/pkg/logger"
)

// PlayerHandler exposes the presenter-facing player transitions
type PlayerHandler struct {
	player *service.PlayerService
	log    *logger.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(player *service.PlayerService, log *logger.Logger) *PlayerHandler {
	return &PlayerHandler{player: player, log: log}
}

// actionRequest carries the optional arguments of a player action
type actionRequest struct {
	QuestionID       string `json:"question_id"`
	Frozen           bool   `json:"frozen"`
	CountdownSeconds int    `json:"countdown_seconds"`
}

// Action handles POST /api/v1/sessions/{sessionID}/player/{action}
func (h *PlayerHandler) Action(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	action := chi.URLParam(r, "action")

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, r, apperrors.NewValidationError("invalid request body", nil), h.log)
		return
	}

	var (
		session *domain.Session
		err     error
	)

	switch action {
	case "start":
		session, err = h.player.Start(ctx, sessionID, req.QuestionID, service.StartOptions{Frozen: req.Frozen})
	case "freeze":
		session, err = h.player.Freeze(ctx, sessionID)
	case "unfreeze":
		session, err = h.player.Unfreeze(ctx, sessionID, req.CountdownSeconds)
	case "next":
		session, err = h.player.Advance(ctx, sessionID, service.AdvanceNext)
	case "previous":
		session, err = h.player.Advance(ctx, sessionID, service.AdvancePrevious)
	case "reset":
		err = h.player.ResetActiveQuestion(ctx, sessionID)
	case "show-results":
		session, err = h.player.ToggleResults(ctx, sessionID, true)
	case "hide-results":
		session, err = h.player.ToggleResults(ctx, sessionID, false)
	case "terminate":
		session, err = h.player.Terminate(ctx, sessionID)
	default:
		respondError(w, r, apperrors.NewNotFoundError("unknown player action"), h.log)
		return
	}

	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	if session == nil {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Results handles GET /api/v1/sessions/{sessionID}/results/{questionID}
func (h *PlayerHandler) Results(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	questionID := chi.URLParam(r, "questionID")

	session, err := h.player.Session(ctx, sessionID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	tally, err := h.player.Tally(ctx, session, questionID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, tally)
}
