package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/perutnina/internal/proof"
	"github.com/erazemk/perutnina/internal/store"
)

// MeHandler handles endpoints acting on the caller's own account.
type MeHandler struct {
	DB *sql.DB
}

type publicKeyRequest struct {
	PublicKey string `json:"publicKey"`
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

// SetPublicKey handles PUT /api/me/public-key. The key must be a hex encoded
// secp256k1 public key.
func (h *MeHandler) SetPublicKey(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req publicKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := strings.TrimSpace(req.PublicKey)
	if _, err := proof.ParsePublicKey(key); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid public key")
		return
	}

	err := store.SetUserPublicKey(r.Context(), h.DB, claims.UID, key)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		slog.Error("failed to set public key", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to set public key")
		return
	}

	slog.Info("public key registered", "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "public key updated"})
}

// AddPushToken handles POST /api/me/push-tokens.
func (h *MeHandler) AddPushToken(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req pushTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		jsonError(w, http.StatusBadRequest, "token required")
		return
	}

	if err := store.AddPushToken(r.Context(), h.DB, claims.UID, strings.TrimSpace(req.Token)); err != nil {
		slog.Error("failed to add push token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to add push token")
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]string{"message": "push token registered"})
}

// RemovePushToken handles DELETE /api/me/push-tokens/{token}.
func (h *MeHandler) RemovePushToken(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	token := chi.URLParam(r, "token")

	tokens, err := store.GetPushTokens(r.Context(), h.DB, claims.UID)
	if err != nil {
		slog.Error("failed to list push tokens", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to remove push token")
		return
	}
	if !slices.Contains(tokens, token) {
		jsonError(w, http.StatusNotFound, "push token not found")
		return
	}

	if err := store.RemovePushToken(r.Context(), h.DB, token); err != nil {
		slog.Error("failed to remove push token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to remove push token")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "push token removed"})
}
