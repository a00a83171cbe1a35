// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization and rate limiting.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/folio-api/internal/auth"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/store"
)

// ContextKey is the type for request context keys set by this package.
type ContextKey string

// ContextKeyUser is the context key for the authenticated user.
const ContextKeyUser ContextKey = "auth_user"

// AuthUser is the resolved identity for a request: the account, its
// roles and the token that authenticated it.
type AuthUser struct {
	User    model.User
	Roles   []string
	TokenID int64
}

// HasPermission reports whether the identity's roles grant perm.
func (a *AuthUser) HasPermission(perm model.Permission) bool {
	return model.RolesHavePermission(a.Roles, perm)
}

// errorBody mirrors the API response envelope for middleware rejections.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Success: false, Message: message})
}

// resolveBearer validates the Authorization header and loads the token's
// owner with roles. When required is false a missing or invalid header
// passes through with a nil identity; failures never write in that mode.
func resolveBearer(w http.ResponseWriter, r *http.Request, queries *store.Queries, required bool) (*AuthUser, bool) {
	deny := func(status int, message string) (*AuthUser, bool) {
		if required {
			writeError(w, status, message)
			return nil, true
		}
		return nil, false
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return deny(http.StatusUnauthorized, "Missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return deny(http.StatusUnauthorized, "Invalid Authorization header format. Use: Bearer <token>")
	}
	rawToken := parts[1]
	if rawToken == "" {
		return deny(http.StatusUnauthorized, "Token is empty")
	}

	token, err := queries.GetAuthTokenByHash(r.Context(), auth.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return deny(http.StatusUnauthorized, "Invalid token")
		}
		slog.Error("failed to validate token", "error", err)
		return deny(http.StatusInternalServerError, "Failed to validate token")
	}

	user, err := queries.GetUserByID(r.Context(), token.UserID)
	if err != nil {
		slog.Error("failed to load token owner", "error", err, "token_id", token.ID)
		return deny(http.StatusUnauthorized, "Invalid token")
	}

	if !user.IsActive {
		return deny(http.StatusForbidden, "Account is deactivated")
	}

	roles, err := queries.GetUserRoles(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to load user roles", "error", err, "user_id", user.ID)
		return deny(http.StatusInternalServerError, "Failed to resolve permissions")
	}
	user.Roles = roles

	return &AuthUser{User: user, Roles: roles, TokenID: token.ID}, false
}

// updateTokenLastUsed stamps the token in a background goroutine.
func updateTokenLastUsed(queries *store.Queries, tokenID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queries.UpdateAuthTokenLastUsed(ctx, tokenID)
	}()
}

// Authenticate creates middleware that requires a valid bearer token and
// places the resolved identity in the request context.
func Authenticate(db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, errorWritten := resolveBearer(w, r, queries, true)
			if errorWritten {
				return
			}

			updateTokenLastUsed(queries, authUser.TokenID)
			ctx := context.WithValue(r.Context(), ContextKeyUser, authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate creates middleware that resolves a bearer token
// when one is presented but lets anonymous requests through.
func OptionalAuthenticate(db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, _ := resolveBearer(w, r, queries, false)
			if authUser == nil {
				next.ServeHTTP(w, r)
				return
			}

			updateTokenLastUsed(queries, authUser.TokenID)
			ctx := context.WithValue(r.Context(), ContextKeyUser, authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthUser retrieves the authenticated identity from the request
// context. Returns nil for anonymous requests.
func GetAuthUser(r *http.Request) *AuthUser {
	authUser, ok := r.Context().Value(ContextKeyUser).(*AuthUser)
	if !ok {
		return nil
	}
	return authUser
}

// RequireRole creates middleware that requires the identity to hold a
// role. Use after Authenticate.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser := GetAuthUser(r)
			if authUser == nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !model.HasRole(authUser.Roles, role) {
				writeError(w, http.StatusForbidden, "Requires role: "+string(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission creates middleware that requires a permission from
// the identity's role set. Use after Authenticate.
func RequirePermission(perm model.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser := GetAuthUser(r)
			if authUser == nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !authUser.HasPermission(perm) {
				writeError(w, http.StatusForbidden, "Missing permission: "+string(perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
