// internal/handlers/errors.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/game"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/session"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/store"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps an error to an HTTP status and a client error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, session.ErrClosed), errors.Is(err, session.ErrNoCodes):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, game.ErrNotHost), errors.Is(err, game.ErrNotAllowed),
		errors.Is(err, game.ErrHostCannotPlay), errors.Is(err, game.ErrNotPlayer):
		return http.StatusForbidden, game.ErrorCode(err)
	case errors.Is(err, game.ErrValidation), errors.Is(err, game.ErrUnknownIntent):
		return http.StatusBadRequest, game.ErrorCode(err)
	case errors.Is(err, game.ErrNoChange):
		return http.StatusOK, game.ErrorCode(err)
	}
	code := game.ErrorCode(err)
	if code == "invalid" {
		return http.StatusInternalServerError, "internal"
	}
	return http.StatusConflict, code
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}
