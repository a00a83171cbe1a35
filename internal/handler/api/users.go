// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/folio-api/internal/auth"
	"github.com/olegiv/folio-api/internal/middleware"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/service"
	"github.com/olegiv/folio-api/internal/store"
)

// userInput carries the fields accepted by user create and update, from
// either a JSON body or a multipart form.
type userInput struct {
	Name                 *string
	Email                *string
	Password             *string
	PasswordConfirmation *string
	Bio                  *string
	Phone                *string
	Website              *string
	Location             *string
	Roles                []string
	RolesSet             bool
	AvatarFile           *service.StoredFile
}

// parseUserInput reads a user payload. Multipart forms may carry an
// avatar file under the "avatar" field.
func (h *Handler) parseUserInput(w http.ResponseWriter, r *http.Request) (*userInput, bool) {
	in := &userInput{}

	if isMultipart(r) {
		if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
			WriteBadRequest(w, "Invalid multipart form")
			return nil, false
		}
		formStr := func(name string) *string {
			if vals, ok := r.MultipartForm.Value[name]; ok && len(vals) > 0 {
				v := vals[0]
				return &v
			}
			return nil
		}
		in.Name = formStr("name")
		in.Email = formStr("email")
		in.Password = formStr("password")
		in.PasswordConfirmation = formStr("password_confirmation")
		in.Bio = formStr("bio")
		in.Phone = formStr("phone")
		in.Website = formStr("website")
		in.Location = formStr("location")
		if roles := formStr("roles"); roles != nil {
			in.RolesSet = true
			for _, role := range strings.Split(*roles, ",") {
				if role = strings.TrimSpace(role); role != "" {
					in.Roles = append(in.Roles, role)
				}
			}
		}

		file, header, err := r.FormFile("avatar")
		if err == nil {
			defer func() { _ = file.Close() }()
			stored, saveErr := h.storage.SaveUpload("avatars", file, header)
			if saveErr != nil {
				WriteValidationError(w, map[string]string{"avatar": saveErr.Error()})
				return nil, false
			}
			in.AvatarFile = stored
		}
		return in, true
	}

	var req struct {
		Name                 *string   `json:"name"`
		Email                *string   `json:"email"`
		Password             *string   `json:"password"`
		PasswordConfirmation *string   `json:"password_confirmation"`
		Bio                  *string   `json:"bio"`
		Phone                *string   `json:"phone"`
		Website              *string   `json:"website"`
		Location             *string   `json:"location"`
		Roles                *[]string `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return nil, false
	}
	in.Name = req.Name
	in.Email = req.Email
	in.Password = req.Password
	in.PasswordConfirmation = req.PasswordConfirmation
	in.Bio = req.Bio
	in.Phone = req.Phone
	in.Website = req.Website
	in.Location = req.Location
	if req.Roles != nil {
		in.RolesSet = true
		in.Roles = *req.Roles
	}
	return in, true
}

// validateRoles checks every role name against the catalogue.
func validateRoles(roles []string) (string, bool) {
	for _, role := range roles {
		if !model.ValidRole(role) {
			return role, false
		}
	}
	return "", true
}

// userListMeta extends pagination with account counters.
type userListMeta struct {
	PageMeta
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
	Verified int64 `json:"verified"`
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, perPage, offset := parsePagination(r)
	q := r.URL.Query()

	filter := store.UserFilter{
		Search:  q.Get("search"),
		Role:    q.Get("role"),
		SortBy:  q.Get("sort_by"),
		SortDir: q.Get("sort_dir"),
		Limit:   perPage,
		Offset:  offset,
	}
	switch q.Get("status") {
	case "active":
		v := true
		filter.Active = &v
	case "inactive":
		v := false
		filter.Active = &v
	}

	users, err := h.queries.ListUsers(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list users")
		return
	}
	total, err := h.queries.CountUsers(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list users")
		return
	}

	for i := range users {
		roles, rolesErr := h.queries.GetUserRoles(ctx, users[i].ID)
		if rolesErr == nil {
			users[i].Roles = roles
		}
	}

	stats, err := h.queries.GetUserStats(ctx, time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		WriteInternalError(w, "Failed to list users")
		return
	}

	WriteSuccess(w, "", users, userListMeta{
		PageMeta: pageMeta(total, page, perPage),
		Active:   stats.Active,
		Inactive: stats.Inactive,
		Verified: stats.Verified,
	})
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, ok := h.parseUserInput(w, r)
	if !ok {
		return
	}

	fieldErrors := make(map[string]string)
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		fieldErrors["name"] = "Name is required"
	}
	var email string
	if in.Email == nil || *in.Email == "" {
		fieldErrors["email"] = "Email is required"
	} else {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
		if !validEmail(email) {
			fieldErrors["email"] = "Email is invalid"
		}
	}
	if in.Password == nil || len(*in.Password) < auth.MinPasswordLength {
		fieldErrors["password"] = "Password must be at least 8 characters"
	}
	if !in.RolesSet || len(in.Roles) == 0 {
		fieldErrors["roles"] = "At least one role is required"
	} else if bad, valid := validateRoles(in.Roles); !valid {
		fieldErrors["roles"] = "Unknown role: " + bad
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if _, err := h.queries.GetUserByEmail(ctx, email); err == nil {
		WriteValidationError(w, map[string]string{"email": "Email is already taken"})
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		WriteInternalError(w, "Failed to check email")
		return
	}

	hash, err := auth.HashPassword(*in.Password)
	if err != nil {
		WriteInternalError(w, "Failed to create user")
		return
	}

	now := time.Now().UTC()
	params := store.CreateUserParams{
		Name:            strings.TrimSpace(*in.Name),
		Email:           email,
		PasswordHash:    hash,
		Bio:             in.Bio,
		Phone:           in.Phone,
		Website:         in.Website,
		Location:        in.Location,
		IsActive:        true,
		EmailVerifiedAt: &now,
	}
	if in.AvatarFile != nil {
		url := uploadsURL(in.AvatarFile.Path)
		params.Avatar = &url
	}

	user, err := h.queries.CreateUser(ctx, params)
	if err != nil {
		h.logger.Error("creating user", "error", err)
		WriteInternalError(w, "Failed to create user")
		return
	}
	if err := h.queries.ReplaceUserRoles(ctx, user.ID, in.Roles); err != nil {
		h.logger.Error("assigning roles", "error", err, "user_id", user.ID)
		WriteInternalError(w, "Failed to create user")
		return
	}
	user.Roles = in.Roles

	WriteCreated(w, "User created", user)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireEntityByID(w, r, "user", func(id int64) (model.User, error) {
		return h.queries.GetUserByID(ctx, id)
	})
	if !ok {
		return
	}
	roles, err := h.queries.GetUserRoles(ctx, user.ID)
	if err == nil {
		user.Roles = roles
	}
	WriteSuccess(w, "", user, nil)
}

// UpdateUser handles PUT /users/{id}.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	existing, ok := requireEntityByID(w, r, "user", func(id int64) (model.User, error) {
		return h.queries.GetUserByID(ctx, id)
	})
	if !ok {
		return
	}

	in, ok := h.parseUserInput(w, r)
	if !ok {
		return
	}

	params := store.UpdateUserParams{
		ID:       existing.ID,
		Name:     existing.Name,
		Email:    existing.Email,
		Avatar:   existing.Avatar,
		Bio:      existing.Bio,
		Phone:    existing.Phone,
		Website:  existing.Website,
		Location: existing.Location,
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			WriteValidationError(w, map[string]string{"name": "Name is required"})
			return
		}
		params.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && *in.Email != "" {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !validEmail(email) {
			WriteValidationError(w, map[string]string{"email": "Email is invalid"})
			return
		}
		if other, err := h.queries.GetUserByEmail(ctx, email); err == nil && other.ID != existing.ID {
			WriteValidationError(w, map[string]string{"email": "Email is already taken"})
			return
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			WriteInternalError(w, "Failed to check email")
			return
		}
		params.Email = email
	}
	if in.Bio != nil {
		params.Bio = in.Bio
	}
	if in.Phone != nil {
		params.Phone = in.Phone
	}
	if in.Website != nil {
		params.Website = in.Website
	}
	if in.Location != nil {
		params.Location = in.Location
	}
	if in.AvatarFile != nil {
		// Replacing an avatar removes the previous local file
		if existing.Avatar != nil {
			if rel := uploadsPath(*existing.Avatar); rel != "" {
				_ = h.storage.Delete(rel)
			}
		}
		url := uploadsURL(in.AvatarFile.Path)
		params.Avatar = &url
	}

	if in.RolesSet {
		if len(in.Roles) == 0 {
			WriteValidationError(w, map[string]string{"roles": "At least one role is required"})
			return
		}
		if bad, valid := validateRoles(in.Roles); !valid {
			WriteValidationError(w, map[string]string{"roles": "Unknown role: " + bad})
			return
		}
	}

	if in.Password != nil {
		if len(*in.Password) < auth.MinPasswordLength {
			WriteValidationError(w, map[string]string{"password": "Password must be at least 8 characters"})
			return
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			WriteInternalError(w, "Failed to update user")
			return
		}
		if err := h.queries.UpdateUserPassword(ctx, existing.ID, hash); err != nil {
			WriteInternalError(w, "Failed to update user")
			return
		}
	}

	user, err := h.queries.UpdateUser(ctx, params)
	if err != nil {
		h.logger.Error("updating user", "error", err, "user_id", existing.ID)
		WriteInternalError(w, "Failed to update user")
		return
	}

	if in.RolesSet {
		if err := h.queries.ReplaceUserRoles(ctx, user.ID, in.Roles); err != nil {
			WriteInternalError(w, "Failed to update roles")
			return
		}
		user.Roles = in.Roles
	} else {
		roles, rolesErr := h.queries.GetUserRoles(ctx, user.ID)
		if rolesErr == nil {
			user.Roles = roles
		}
	}

	WriteSuccess(w, "User updated", user, nil)
}

// DeleteUser handles DELETE /users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser := middleware.GetAuthUser(r)

	target, ok := requireEntityByID(w, r, "user", func(id int64) (model.User, error) {
		return h.queries.GetUserByID(ctx, id)
	})
	if !ok {
		return
	}

	if target.ID == authUser.User.ID {
		WriteForbidden(w, "You cannot delete your own account")
		return
	}

	roles, err := h.queries.GetUserRoles(ctx, target.ID)
	if err != nil {
		WriteInternalError(w, "Failed to delete user")
		return
	}
	if model.HasRole(roles, model.RoleAdmin) {
		// Fresh count at decision time
		admins, countErr := h.queries.CountUsersWithRole(ctx, string(model.RoleAdmin))
		if countErr != nil {
			WriteInternalError(w, "Failed to delete user")
			return
		}
		if admins <= 1 {
			WriteForbidden(w, "Cannot delete the last admin")
			return
		}
	}

	if err := h.queries.DeleteUserAuthTokens(ctx, target.ID); err != nil {
		WriteInternalError(w, "Failed to delete user")
		return
	}
	if target.Avatar != nil {
		if rel := uploadsPath(*target.Avatar); rel != "" {
			_ = h.storage.Delete(rel)
		}
	}
	if err := h.queries.DeleteUser(ctx, target.ID); err != nil {
		h.logger.Error("deleting user", "error", err, "user_id", target.ID)
		WriteInternalError(w, "Failed to delete user")
		return
	}

	h.logger.Info("user deleted", "user_id", target.ID, "by", authUser.User.ID)
	WriteSuccess(w, "User deleted", nil, nil)
}

// ToggleUserStatus handles POST /users/{id}/toggle-status.
func (h *Handler) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser := middleware.GetAuthUser(r)

	target, ok := requireEntityByID(w, r, "user", func(id int64) (model.User, error) {
		return h.queries.GetUserByID(ctx, id)
	})
	if !ok {
		return
	}

	if target.ID == authUser.User.ID {
		WriteForbidden(w, "You cannot deactivate your own account")
		return
	}

	deactivating := target.IsActive
	if deactivating {
		roles, err := h.queries.GetUserRoles(ctx, target.ID)
		if err != nil {
			WriteInternalError(w, "Failed to update user")
			return
		}
		if model.HasRole(roles, model.RoleAdmin) {
			activeAdmins, countErr := h.queries.CountActiveUsersWithRole(ctx, string(model.RoleAdmin))
			if countErr != nil {
				WriteInternalError(w, "Failed to update user")
				return
			}
			if activeAdmins <= 1 {
				WriteForbidden(w, "Cannot deactivate the last active admin")
				return
			}
		}
	}

	if err := h.queries.SetUserActive(ctx, target.ID, !target.IsActive); err != nil {
		WriteInternalError(w, "Failed to update user")
		return
	}
	if deactivating {
		if err := h.queries.DeleteUserAuthTokens(ctx, target.ID); err != nil {
			h.logger.Warn("revoking tokens on deactivation", "error", err, "user_id", target.ID)
		}
	}

	user, err := h.queries.GetUserByID(ctx, target.ID)
	if err != nil {
		WriteInternalError(w, "Failed to update user")
		return
	}

	message := "User activated"
	if deactivating {
		message = "User deactivated"
	}
	WriteSuccess(w, message, user, nil)
}

// RoleInfo describes one entry in the role catalogue.
type RoleInfo struct {
	Name        model.Role         `json:"name"`
	Permissions []model.Permission `json:"permissions"`
}

// ListRoles handles GET /users/roles.
func (h *Handler) ListRoles(w http.ResponseWriter, _ *http.Request) {
	roles := make([]RoleInfo, 0, len(model.AllRoles()))
	for _, role := range model.AllRoles() {
		roles = append(roles, RoleInfo{
			Name:        role,
			Permissions: model.PermissionsForRole(role),
		})
	}
	WriteSuccess(w, "", roles, nil)
}

// UserStats handles GET /users/stats.
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queries.GetUserStats(r.Context(), time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		WriteInternalError(w, "Failed to load user stats")
		return
	}
	WriteSuccess(w, "", stats, nil)
}
