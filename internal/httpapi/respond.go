package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/predict"
	"github.com/DoyleJ11/auction-backend/internal/tournament"
	"github.com/DoyleJ11/auction-backend/pkg/types"
)

const maxBodyBytes = 1 << 20

var errNoArchive = errors.New("result archive is not configured")

var statusByKind = map[string]int{
	"InvalidStateError":             http.StatusConflict,
	"InsufficientParticipantsError": http.StatusConflict,
	"UnknownParticipantError":       http.StatusNotFound,
	"InsufficientBudgetError":       http.StatusUnprocessableEntity,
	"BidTooLowError":                http.StatusUnprocessableEntity,
	"NotAuthorizedError":            http.StatusForbidden,
	"RoomNotFoundError":             http.StatusNotFound,
	"NoActiveAuctionError":          http.StatusConflict,
	"InvalidInputError":             http.StatusBadRequest,
	"UnsupportedCommandError":       http.StatusBadRequest,
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps err onto a status code and the {"kind","message"} body.
func respondError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	respondJSON(w, status, body)
}

func errorBody(err error) (int, types.ErrorBody) {
	switch {
	case errors.Is(err, tournament.ErrNotFound):
		return http.StatusNotFound, types.ErrorBody{Kind: "NotFoundError", Message: err.Error()}
	case errors.Is(err, predict.ErrDisabled), errors.Is(err, errNoArchive):
		return http.StatusServiceUnavailable, types.ErrorBody{Kind: "UnavailableError", Message: err.Error()}
	case errors.Is(err, predict.ErrUpstream):
		return http.StatusBadGateway, types.ErrorBody{Kind: "UpstreamError", Message: err.Error()}
	}

	kind := engine.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return status, types.ErrorBody{Kind: kind, Message: engine.Message(err)}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body", engine.ErrInvalidInput)
	}
	return nil
}

func userID(r *http.Request) (string, error) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		return "", fmt.Errorf("%w: X-User-ID header is required", engine.ErrInvalidInput)
	}
	return id, nil
}
