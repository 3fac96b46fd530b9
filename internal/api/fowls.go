package api

import (
	"bytes"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/erazemk/perutnina/internal/auth"
	"github.com/erazemk/perutnina/internal/imaging"
	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/store"
	"github.com/erazemk/perutnina/internal/tree"
)

// Tree depth limits for GET /api/fowls/{id}/tree.
const (
	defaultTreeDepth = 3
	maxTreeDepth     = 10
)

// FowlsHandler handles fowl registry endpoints.
type FowlsHandler struct {
	DB *sql.DB
}

type createFowlRequest struct {
	Name      string `json:"name"`
	Breed     string `json:"breed"`
	Gender    string `json:"gender"`
	HatchDate string `json:"hatchDate"`
	SireID    string `json:"sireId"`
	DamID     string `json:"damId"`
}

func (r createFowlRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Gender, validation.In(model.GenderMale, model.GenderFemale, model.GenderUnknown)),
		validation.Field(&r.HatchDate, validation.Date(time.DateOnly)),
		validation.Field(&r.DamID, validation.When(r.SireID != "", validation.NotIn(r.SireID).Error("sire and dam must differ"))),
	)
}

// List handles GET /api/fowls. Admins may list another owner's fowls with
// ?owner=<uid>.
func (h *FowlsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	owner := claims.UID
	if q := r.URL.Query().Get("owner"); q != "" && model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		owner = q
	}

	fowls, err := store.ListFowls(r.Context(), h.DB, owner)
	if err != nil {
		slog.Error("failed to list fowls", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list fowls")
		return
	}
	if fowls == nil {
		fowls = []model.Fowl{}
	}
	jsonResponse(w, http.StatusOK, fowls)
}

// Create handles POST /api/fowls. The caller becomes the owner.
func (h *FowlsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createFowlRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := &model.Fowl{
		OwnerID: claims.UID,
		Name:    req.Name,
		Breed:   strings.TrimSpace(req.Breed),
		Gender:  req.Gender,
		SireID:  req.SireID,
		DamID:   req.DamID,
	}
	if req.HatchDate != "" {
		d, _ := time.Parse(time.DateOnly, req.HatchDate)
		f.HatchDate = &d
	}

	for _, parentID := range []string{req.SireID, req.DamID} {
		if parentID == "" {
			continue
		}
		parent, err := store.GetFowl(r.Context(), h.DB, parentID)
		if err != nil {
			slog.Error("failed to get parent fowl", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to create fowl")
			return
		}
		if parent == nil {
			jsonError(w, http.StatusBadRequest, "parent fowl "+parentID+" not found")
			return
		}
	}

	fowl, err := store.CreateFowl(r.Context(), h.DB, f)
	if err != nil {
		slog.Error("failed to create fowl", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create fowl")
		return
	}

	slog.Info("fowl registered", "user", claims.Username, "fowl", fowl.ID, "name", fowl.Name)
	jsonResponse(w, http.StatusCreated, fowl)
}

// Get handles GET /api/fowls/{id}.
func (h *FowlsHandler) Get(w http.ResponseWriter, r *http.Request) {
	fowl, ok := h.loadFowl(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, fowl)
}

// UploadImage handles PUT /api/fowls/{id}/image. Only the owner may change
// the photo.
func (h *FowlsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	fowl, ok := h.loadFowl(w, r)
	if !ok {
		return
	}
	if !canManage(GetClaims(r.Context()), fowl) {
		jsonError(w, http.StatusForbidden, "only the owner can change this fowl")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetFowlImage(r.Context(), h.DB, fowl.ID, photo.Data, photo.MIME); err != nil {
		slog.Error("failed to save fowl image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/fowls/{id}/image.
func (h *FowlsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetFowlImage(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("failed to get fowl image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// Tree handles GET /api/fowls/{id}/tree. The format query parameter selects
// json (default), png or pdf.
func (h *FowlsHandler) Tree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	depth, err := intParam(q.Get("depth"), defaultTreeDepth)
	if err != nil || depth < 1 || depth > maxTreeDepth {
		jsonError(w, http.StatusBadRequest, "depth must be between 1 and "+strconv.Itoa(maxTreeDepth))
		return
	}

	vp, err := viewportParams(q.Get)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	fowls, edges, err := store.Lineage(r.Context(), h.DB, id, depth)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "fowl not found")
		return
	}
	if err != nil {
		slog.Error("failed to load lineage", "fowl", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to build family tree")
		return
	}

	ft := tree.Build(id, fowls, edges, depth)
	opts := tree.Options{Viewport: vp}

	switch format := q.Get("format"); format {
	case "", "json":
		jsonResponse(w, http.StatusOK, map[string]any{
			"tree":   ft,
			"layout": tree.Layout(ft, opts.Viewport),
		})

	case "png":
		var buf bytes.Buffer
		if err := tree.RenderPNG(&buf, ft, opts); err != nil {
			slog.Error("failed to render tree", "fowl", id, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to render family tree")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())

	case "pdf":
		pdfOpts := tree.PDFOptions{Options: opts, Title: "Family tree of " + fowls[0].Name}
		if data, _, err := store.GetFowlImage(r.Context(), h.DB, id); err == nil && data != nil {
			if thumb, err := imaging.Thumbnail(data, imaging.ThumbnailDimension); err == nil {
				pdfOpts.Photo = thumb
			}
		}

		var buf bytes.Buffer
		if err := tree.RenderPDF(&buf, ft, pdfOpts); err != nil {
			slog.Error("failed to render tree pdf", "fowl", id, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to render family tree")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="tree-`+id+`.pdf"`)
		w.Write(buf.Bytes())

	default:
		jsonError(w, http.StatusBadRequest, "unknown format "+format)
	}
}

func (h *FowlsHandler) loadFowl(w http.ResponseWriter, r *http.Request) (*model.Fowl, bool) {
	fowl, err := store.GetFowl(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("failed to get fowl", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get fowl")
		return nil, false
	}
	if fowl == nil {
		jsonError(w, http.StatusNotFound, "fowl not found")
		return nil, false
	}
	return fowl, true
}

// canManage reports whether the caller may change fowl records.
func canManage(claims *auth.Claims, fowl *model.Fowl) bool {
	return claims.UID == fowl.OwnerID || model.RoleAtLeast(claims.Role, model.RoleManager)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func viewportParams(get func(string) string) (tree.Viewport, error) {
	var vp tree.Viewport
	fields := []struct {
		name string
		dst  *float64
	}{
		{"width", &vp.Width},
		{"height", &vp.Height},
		{"zoom", &vp.Zoom},
		{"panX", &vp.PanX},
		{"panY", &vp.PanY},
	}
	for _, f := range fields {
		s := get(f.name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return vp, errors.New("invalid " + f.name)
		}
		*f.dst = v
	}

	if vp.Width > tree.MaxCanvas || vp.Height > tree.MaxCanvas || vp.Width < 0 || vp.Height < 0 {
		return vp, errors.New("width and height must be between 0 and " + strconv.Itoa(tree.MaxCanvas))
	}
	if vp.Zoom < 0 || vp.Zoom > 10 {
		return vp, errors.New("zoom must be between 0 and 10")
	}
	return vp, nil
}
