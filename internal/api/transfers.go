package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/store"
	"github.com/erazemk/perutnina/internal/transfer"
)

// TransfersHandler handles transfer endpoints.
type TransfersHandler struct {
	DB      *sql.DB
	Service *transfer.Service
}

type createTransferResponse struct {
	TransferID string `json:"transferId"`
}

type attachProofRequest struct {
	ProofURLs []string `json:"proofUrls"`
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transfer.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.Service.CreateTransfer(r.Context(), callerUID(r), req)
	if err != nil {
		transferError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, createTransferResponse{TransferID: id})
}

// List handles GET /api/transfers and returns the transfers the caller is
// a resolved party to. ?fowl=<id> narrows the list to one fowl.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	transfers, err := store.ListTransfers(r.Context(), h.DB, r.URL.Query().Get("fowl"), callerUID(r))
	if err != nil {
		slog.Error("failed to list transfers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transfers")
		return
	}
	if transfers == nil {
		transfers = []model.Transfer{}
	}
	jsonResponse(w, http.StatusOK, transfers)
}

// ListForFowl handles GET /api/fowls/{id}/transfers. The current owner and
// managers see the full history; anyone else only sees transfers they took
// part in.
func (h *TransfersHandler) ListForFowl(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	fowlID := chi.URLParam(r, "id")

	fowl, err := store.GetFowl(r.Context(), h.DB, fowlID)
	if err != nil {
		slog.Error("failed to get fowl", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transfers")
		return
	}
	if fowl == nil {
		jsonError(w, http.StatusNotFound, "fowl not found")
		return
	}

	party := claims.UID
	if canManage(claims, fowl) {
		party = ""
	}

	transfers, err := store.ListTransfers(r.Context(), h.DB, fowlID, party)
	if err != nil {
		slog.Error("failed to list transfers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transfers")
		return
	}
	if transfers == nil {
		transfers = []model.Transfer{}
	}
	jsonResponse(w, http.StatusOK, transfers)
}

// Get handles GET /api/transfers/{id}.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.GetTransfer(r.Context(), callerUID(r), chi.URLParam(r, "id"))
	if err != nil {
		transferError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// AttachProof handles PUT /api/transfers/{id}/proof.
func (h *TransfersHandler) AttachProof(w http.ResponseWriter, r *http.Request) {
	var req attachProofRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.AttachProof(r.Context(), callerUID(r), chi.URLParam(r, "id"), req.ProofURLs)
	if err != nil {
		transferError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Verify handles POST /api/callable/verifyTransfer. Every failure,
// including a malformed body, is answered in the callable error shape.
func (h *TransfersHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req transfer.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		transferError(w, r, &transfer.Error{Kind: transfer.KindInvalidArgument, Msg: "invalid request body", Err: err})
		return
	}

	res, err := h.Service.VerifyTransfer(r.Context(), callerUID(r), req)
	if err != nil {
		transferError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
