// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/folio-api/internal/auth"
	"github.com/olegiv/folio-api/internal/middleware"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/store"
)

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Name                 string  `json:"name"`
	Email                string  `json:"email"`
	Password             string  `json:"password"`
	PasswordConfirmation string  `json:"password_confirmation"`
	Bio                  *string `json:"bio,omitempty"`
	Phone                *string `json:"phone,omitempty"`
	Website              *string `json:"website,omitempty"`
	Location             *string `json:"location,omitempty"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// AuthData is returned by register, login and refresh.
type AuthData struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	fieldErrors := make(map[string]string)
	if strings.TrimSpace(req.Name) == "" {
		fieldErrors["name"] = "Name is required"
	}
	if req.Email == "" {
		fieldErrors["email"] = "Email is required"
	} else if !validEmail(req.Email) {
		fieldErrors["email"] = "Email is invalid"
	}
	if len(req.Password) < auth.MinPasswordLength {
		fieldErrors["password"] = "Password must be at least 8 characters"
	} else if req.Password != req.PasswordConfirmation {
		fieldErrors["password_confirmation"] = "Password confirmation does not match"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if _, err := h.queries.GetUserByEmail(ctx, req.Email); err == nil {
		WriteValidationError(w, map[string]string{"email": "Email is already taken"})
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		WriteInternalError(w, "Failed to check email")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hashing password", "error", err)
		WriteInternalError(w, "Failed to create account")
		return
	}

	user, err := h.queries.CreateUser(ctx, store.CreateUserParams{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Bio:          req.Bio,
		Phone:        req.Phone,
		Website:      req.Website,
		Location:     req.Location,
		IsActive:     true,
	})
	if err != nil {
		h.logger.Error("creating user", "error", err)
		WriteInternalError(w, "Failed to create account")
		return
	}

	if err := h.queries.ReplaceUserRoles(ctx, user.ID, []string{string(model.RoleViewer)}); err != nil {
		h.logger.Error("assigning default role", "error", err, "user_id", user.ID)
		WriteInternalError(w, "Failed to create account")
		return
	}
	user.Roles = []string{string(model.RoleViewer)}

	token, err := h.issueToken(ctx, user.ID, model.TokenNameAuth)
	if err != nil {
		h.logger.Error("issuing token", "error", err, "user_id", user.ID)
		WriteInternalError(w, "Failed to create account")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	WriteCreated(w, "Account created", AuthData{User: user, Token: token, TokenType: "Bearer"})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.queries.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteUnauthorized(w, "Invalid credentials")
		} else {
			WriteInternalError(w, "Failed to sign in")
		}
		return
	}

	ok, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		WriteUnauthorized(w, "Invalid credentials")
		return
	}

	if !user.IsActive {
		WriteForbidden(w, "Account is deactivated")
		return
	}

	if err := h.queries.UpdateUserLastLogin(ctx, user.ID); err != nil {
		h.logger.Warn("stamping last login", "error", err, "user_id", user.ID)
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now

	roles, err := h.queries.GetUserRoles(ctx, user.ID)
	if err != nil {
		WriteInternalError(w, "Failed to sign in")
		return
	}
	user.Roles = roles

	tokenName := model.TokenNameAuth
	if req.RememberMe {
		tokenName = model.TokenNameRemember
	}
	token, err := h.issueToken(ctx, user.ID, tokenName)
	if err != nil {
		h.logger.Error("issuing token", "error", err, "user_id", user.ID)
		WriteInternalError(w, "Failed to sign in")
		return
	}

	WriteSuccess(w, "Signed in", AuthData{User: user, Token: token, TokenType: "Bearer"}, nil)
}

// MeData is returned by GET /auth/me.
type MeData struct {
	User        model.User         `json:"user"`
	Permissions []model.Permission `json:"permissions"`
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	authUser := middleware.GetAuthUser(r)
	WriteSuccess(w, "", MeData{
		User:        authUser.User,
		Permissions: model.PermissionsForRoles(authUser.Roles),
	}, nil)
}

// UpdateProfileRequest is the request body for PUT /auth/profile.
type UpdateProfileRequest struct {
	Name                 *string `json:"name,omitempty"`
	Email                *string `json:"email,omitempty"`
	Bio                  *string `json:"bio,omitempty"`
	Phone                *string `json:"phone,omitempty"`
	Website              *string `json:"website,omitempty"`
	Location             *string `json:"location,omitempty"`
	CurrentPassword      *string `json:"current_password,omitempty"`
	Password             *string `json:"password,omitempty"`
	PasswordConfirmation *string `json:"password_confirmation,omitempty"`
}

// UpdateProfile handles PUT /auth/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser := middleware.GetAuthUser(r)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return
	}

	params := store.UpdateUserParams{
		ID:       authUser.User.ID,
		Name:     authUser.User.Name,
		Email:    authUser.User.Email,
		Avatar:   authUser.User.Avatar,
		Bio:      authUser.User.Bio,
		Phone:    authUser.User.Phone,
		Website:  authUser.User.Website,
		Location: authUser.User.Location,
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			WriteValidationError(w, map[string]string{"name": "Name is required"})
			return
		}
		params.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !validEmail(email) {
			WriteValidationError(w, map[string]string{"email": "Email is invalid"})
			return
		}
		if other, err := h.queries.GetUserByEmail(ctx, email); err == nil && other.ID != authUser.User.ID {
			WriteValidationError(w, map[string]string{"email": "Email is already taken"})
			return
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			WriteInternalError(w, "Failed to check email")
			return
		}
		params.Email = email
	}
	if req.Bio != nil {
		params.Bio = req.Bio
	}
	if req.Phone != nil {
		params.Phone = req.Phone
	}
	if req.Website != nil {
		params.Website = req.Website
	}
	if req.Location != nil {
		params.Location = req.Location
	}

	// Password change requires the current password
	if req.Password != nil {
		if req.CurrentPassword == nil {
			WriteValidationError(w, map[string]string{"current_password": "Current password is required"})
			return
		}
		ok, err := auth.CheckPassword(*req.CurrentPassword, authUser.User.PasswordHash)
		if err != nil || !ok {
			WriteValidationError(w, map[string]string{"current_password": "Current password is incorrect"})
			return
		}
		if len(*req.Password) < auth.MinPasswordLength {
			WriteValidationError(w, map[string]string{"password": "Password must be at least 8 characters"})
			return
		}
		if req.PasswordConfirmation == nil || *req.Password != *req.PasswordConfirmation {
			WriteValidationError(w, map[string]string{"password_confirmation": "Password confirmation does not match"})
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			WriteInternalError(w, "Failed to update password")
			return
		}
		if err := h.queries.UpdateUserPassword(ctx, authUser.User.ID, hash); err != nil {
			WriteInternalError(w, "Failed to update password")
			return
		}
	}

	user, err := h.queries.UpdateUser(ctx, params)
	if err != nil {
		h.logger.Error("updating profile", "error", err, "user_id", authUser.User.ID)
		WriteInternalError(w, "Failed to update profile")
		return
	}
	user.Roles = authUser.Roles

	WriteSuccess(w, "Profile updated", user, nil)
}

// Logout handles POST /auth/logout: revokes the presented token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	authUser := middleware.GetAuthUser(r)
	if err := h.queries.DeleteAuthToken(r.Context(), authUser.TokenID); err != nil {
		WriteInternalError(w, "Failed to sign out")
		return
	}
	WriteSuccess(w, "Signed out", nil, nil)
}

// LogoutAll handles POST /auth/logout-all: revokes every token.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	authUser := middleware.GetAuthUser(r)
	if err := h.queries.DeleteUserAuthTokens(r.Context(), authUser.User.ID); err != nil {
		WriteInternalError(w, "Failed to sign out")
		return
	}
	WriteSuccess(w, "Signed out everywhere", nil, nil)
}

// Refresh handles POST /auth/refresh: revokes the presented token and
// issues a replacement in one transaction.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser := middleware.GetAuthUser(r)

	token, err := auth.GenerateToken()
	if err != nil {
		WriteInternalError(w, "Failed to refresh token")
		return
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		WriteInternalError(w, "Failed to refresh token")
		return
	}
	defer func() { _ = tx.Rollback() }()

	qtx := h.queries.WithTx(tx)
	if err := qtx.DeleteAuthToken(ctx, authUser.TokenID); err != nil {
		WriteInternalError(w, "Failed to refresh token")
		return
	}
	if _, err := qtx.CreateAuthToken(ctx, authUser.User.ID, model.TokenNameAuth, auth.HashToken(token)); err != nil {
		WriteInternalError(w, "Failed to refresh token")
		return
	}
	if err := tx.Commit(); err != nil {
		WriteInternalError(w, "Failed to refresh token")
		return
	}

	WriteSuccess(w, "Token refreshed", AuthData{
		User:      authUser.User,
		Token:     token,
		TokenType: "Bearer",
	}, nil)
}

// issueToken generates, stores and returns a new plaintext bearer token.
func (h *Handler) issueToken(ctx context.Context, userID int64, name string) (string, error) {
	token, err := auth.GenerateToken()
	if err != nil {
		return "", err
	}
	if _, err := h.queries.CreateAuthToken(ctx, userID, name, auth.HashToken(token)); err != nil {
		return "", err
	}
	return token, nil
}
