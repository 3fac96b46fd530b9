package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/erazemk/perutnina/internal/breeding"
	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/store"
)

// RecordsHandler handles vaccination and breeding records.
type RecordsHandler struct {
	DB  *sql.DB
	Now func() time.Time
}

func (h *RecordsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type createVaccinationRequest struct {
	VaccineName   string `json:"vaccineName"`
	ScheduledDate string `json:"scheduledDate"`
	Notes         string `json:"notes"`
}

func (r createVaccinationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.VaccineName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.ScheduledDate, validation.Required, validation.Date(time.DateOnly)),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
	)
}

type completeVaccinationRequest struct {
	Notes string `json:"notes"`
}

type breedingRecordRequest struct {
	SireID         string `json:"sireId"`
	DamID          string `json:"damId"`
	EggsSet        int    `json:"eggsSet"`
	EggsHatched    int    `json:"eggsHatched"`
	OffspringCount int    `json:"offspringCount"`
	RecordedAt     string `json:"recordedAt"`
}

func (r breedingRecordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.EggsSet, validation.Required, validation.Min(1)),
		validation.Field(&r.EggsHatched, validation.Min(0), validation.Max(r.EggsSet).Error("must not exceed eggs set")),
		validation.Field(&r.OffspringCount, validation.Min(0)),
		validation.Field(&r.RecordedAt, validation.Date(time.DateOnly)),
	)
}

// ListVaccinations handles GET /api/fowls/{id}/vaccinations.
func (h *RecordsHandler) ListVaccinations(w http.ResponseWriter, r *http.Request) {
	events, err := store.ListVaccinations(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("failed to list vaccinations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list vaccinations")
		return
	}
	if events == nil {
		events = []model.VaccinationEvent{}
	}
	jsonResponse(w, http.StatusOK, events)
}

// CreateVaccination handles POST /api/fowls/{id}/vaccinations.
func (h *RecordsHandler) CreateVaccination(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	fowl, err := store.GetFowl(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("failed to get fowl", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to schedule vaccination")
		return
	}
	if fowl == nil {
		jsonError(w, http.StatusNotFound, "fowl not found")
		return
	}
	if !canManage(claims, fowl) {
		jsonError(w, http.StatusForbidden, "only the owner can schedule vaccinations")
		return
	}

	var req createVaccinationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.VaccineName = strings.TrimSpace(req.VaccineName)
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	scheduled, _ := time.Parse(time.DateOnly, req.ScheduledDate)

	v, err := store.CreateVaccination(r.Context(), h.DB, fowl.ID, req.VaccineName, scheduled, req.Notes)
	if err != nil {
		slog.Error("failed to create vaccination", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to schedule vaccination")
		return
	}

	slog.Info("vaccination scheduled", "user", claims.Username, "fowl", fowl.ID, "vaccine", v.VaccineName)
	jsonResponse(w, http.StatusCreated, v)
}

// CompleteVaccination handles POST /api/vaccinations/{id}/complete.
func (h *RecordsHandler) CompleteVaccination(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := chi.URLParam(r, "id")

	v, err := store.GetVaccination(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get vaccination", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to complete vaccination")
		return
	}
	if v == nil {
		jsonError(w, http.StatusNotFound, "vaccination not found")
		return
	}

	fowl, err := store.GetFowl(r.Context(), h.DB, v.FowlID)
	if err != nil || fowl == nil {
		jsonError(w, http.StatusInternalServerError, "failed to complete vaccination")
		return
	}
	if !canManage(claims, fowl) {
		jsonError(w, http.StatusForbidden, "only the owner can complete vaccinations")
		return
	}

	var req completeVaccinationRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	completed := h.now().UTC()
	notes := strings.TrimSpace(req.Notes)
	err = store.CompleteVaccination(r.Context(), h.DB, id, completed, notes)
	if errors.Is(err, store.ErrNotPending) {
		jsonError(w, http.StatusConflict, "vaccination already completed")
		return
	}
	if err != nil {
		slog.Error("failed to complete vaccination", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to complete vaccination")
		return
	}

	v.Status = model.VaccinationCompleted
	v.CompletedDate = &completed
	if notes != "" {
		v.Notes = notes
	}
	slog.Info("vaccination completed", "user", claims.Username, "fowl", fowl.ID, "vaccine", v.VaccineName)
	jsonResponse(w, http.StatusOK, v)
}

// CreateBreedingRecord handles POST /api/breeding/records.
func (h *RecordsHandler) CreateBreedingRecord(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req breedingRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	recordedAt := h.now().UTC()
	if req.RecordedAt != "" {
		recordedAt, _ = time.Parse(time.DateOnly, req.RecordedAt)
	}

	rec, err := store.CreateBreedingRecord(r.Context(), h.DB, &model.BreedingRecord{
		OwnerID:        claims.UID,
		SireID:         req.SireID,
		DamID:          req.DamID,
		EggsSet:        req.EggsSet,
		EggsHatched:    req.EggsHatched,
		OffspringCount: req.OffspringCount,
		RecordedAt:     recordedAt,
	})
	if err != nil {
		slog.Error("failed to create breeding record", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create breeding record")
		return
	}

	jsonResponse(w, http.StatusCreated, rec)
}

// BreedingSummary handles GET /api/breeding/summary.
func (h *RecordsHandler) BreedingSummary(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	q := r.URL.Query()

	period, err := breeding.ParsePeriod(q.Get("period"), q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	days, err := store.BreedingDaily(r.Context(), h.DB, claims.UID, period.From, period.To)
	if err != nil {
		slog.Error("failed to aggregate breeding records", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to summarize breeding records")
		return
	}

	jsonResponse(w, http.StatusOK, breeding.Summarize(period, days))
}
