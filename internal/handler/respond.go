package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rob0403/LiveVotingRW/internal/middleware"
	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
	"github.com/rob0403/LiveVotingRW/pkg/logger"
)

// respondJSON writes a JSON payload with the given status. A nil payload
// produces a bodiless response without a Content-Type header.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps any error onto the typed error envelope. Unknown
// errors surface as internal so nothing is ever swallowed silently.
func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	} else {
		log.WithError(err).Debug("Request rejected")
	}

	var resp apperrors.ErrorResponse
	resp.Error.Type = appErr.Type
	resp.Error.Message = appErr.Message
	resp.Error.Details = appErr.Details
	resp.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if requestID, ok := r.Context().Value(middleware.RequestIDContextKey).(string); ok {
		resp.Error.RequestID = requestID
	}

	respondJSON(w, appErr.StatusCode, resp)
}
