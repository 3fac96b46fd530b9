package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/erazemk/perutnina/internal/transfer"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

var kindStatus = map[transfer.Kind]int{
	transfer.KindUnauthenticated:  http.StatusUnauthorized,
	transfer.KindNotFound:         http.StatusNotFound,
	transfer.KindPermissionDenied: http.StatusForbidden,
	transfer.KindInvalidArgument:  http.StatusBadRequest,
	transfer.KindInternal:         http.StatusInternalServerError,
}

type callableError struct {
	Kind    transfer.Kind `json:"kind"`
	Message string        `json:"message"`
}

// transferError writes a transfer service error as
// {"error": {"kind": ..., "message": ...}}. Internal errors are reported to
// Sentry and their cause is never sent to the client.
func transferError(w http.ResponseWriter, r *http.Request, err error) {
	kind := transfer.KindOf(err)
	msg := "internal error"

	var te *transfer.Error
	if errors.As(err, &te) {
		msg = te.Msg
	}
	if kind == transfer.KindInternal {
		captureError(r, err)
	}

	jsonResponse(w, kindStatus[kind], map[string]callableError{
		"error": {Kind: kind, Message: msg},
	})
}

// captureError reports err to Sentry with the request attached. It is a
// no-op when Sentry was not initialized.
func captureError(r *http.Request, err error) {
	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(r)
		if claims := GetClaims(r.Context()); claims != nil {
			scope.SetUser(sentry.User{ID: claims.UID, Username: claims.Username})
		}
		hub.CaptureException(err)
	})
}
