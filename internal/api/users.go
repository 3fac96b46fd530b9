package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (r *createUserRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = model.NormalizeContact(model.ContactEmail, r.Email)
	r.Phone = model.NormalizeContact(model.ContactPhone, r.Phone)
}

func (r createUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.Required, validation.By(checkPassword)),
		validation.Field(&r.Role, validation.Required, roleRule),
		validation.Field(&r.Email, is.EmailFormat),
		validation.Field(&r.Phone, phoneRule),
	)
}

type updateUserRequest struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (r *updateUserRequest) normalize() {
	r.Email = model.NormalizeContact(model.ContactEmail, r.Email)
	r.Phone = model.NormalizeContact(model.ContactPhone, r.Phone)
}

func (r updateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, roleRule),
		validation.Field(&r.Email, is.EmailFormat),
		validation.Field(&r.Phone, phoneRule),
	)
}

var roleRule = validation.In(model.RoleAdmin, model.RoleManager, model.RoleUser).Error("invalid role")

var phoneRule = validation.Match(model.PhonePattern).Error("must be a phone number in international format")

// contactConflict returns a message naming the contact detail that another
// active user already has, or "" when both are free.
func contactConflict(ctx context.Context, db *sql.DB, email, phone string, exceptID int64) (string, error) {
	taken, err := store.ContactInUse(ctx, db, model.ContactEmail, email, exceptID)
	if err != nil || taken {
		return "email already in use", err
	}
	taken, err = store.ContactInUse(ctx, db, model.ContactPhone, phone, exceptID)
	if err != nil || taken {
		return "phone already in use", err
	}
	return "", nil
}

func checkPassword(value any) error {
	s, _ := value.(string)
	return model.ValidatePassword(s)
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := contactConflict(r.Context(), h.DB, req.Email, req.Phone, 0)
	if err != nil {
		slog.Error("failed to check contact details", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if msg != "" {
		jsonError(w, http.StatusConflict, msg)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, &model.User{
		UID:          uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         req.Role,
	})
	if err != nil {
		slog.Warn("failed to create user", "username", req.Username, "error", err)
		jsonError(w, http.StatusConflict, "username or contact details already in use")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("user created", "user", claims.Username, "new_user", user.Username, "uid", user.UID, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := contactConflict(r.Context(), h.DB, req.Email, req.Phone, id)
	if err != nil {
		slog.Error("failed to check contact details", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if msg != "" {
		jsonError(w, http.StatusConflict, msg)
		return
	}

	err = store.UpdateUser(r.Context(), h.DB, id, req.Role, req.Email, req.Phone)
	if errors.Is(err, store.ErrDuplicate) {
		jsonError(w, http.StatusConflict, "contact details already in use")
		return
	}
	if err != nil {
		slog.Error("failed to update user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("user updated", "user", claims.Username, "target_user", user.Username, "role", req.Role)
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	// Prevent self-deletion.
	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	target, _ := store.GetUser(r.Context(), h.DB, id)
	if target == nil || target.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to delete user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	slog.Info("user deleted", "user", claims.Username, "deleted_user", fmt.Sprintf("%s (%s)", target.Username, target.UID))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
