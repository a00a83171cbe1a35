// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/folio-api/internal/auth"
	"github.com/olegiv/folio-api/internal/middleware"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/store"
	"github.com/olegiv/folio-api/internal/testutil"
)

func createUserWithToken(t *testing.T, db *sql.DB, email string, roles []string, active bool) string {
	t.Helper()
	ctx := context.Background()
	queries := store.New(db)

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user, err := queries.CreateUser(ctx, store.CreateUserParams{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := queries.ReplaceUserRoles(ctx, user.ID, roles); err != nil {
		t.Fatalf("ReplaceUserRoles: %v", err)
	}
	if !active {
		if err := queries.SetUserActive(ctx, user.ID, false); err != nil {
			t.Fatalf("SetUserActive: %v", err)
		}
	}

	token, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := queries.CreateAuthToken(ctx, user.ID, model.TokenNameAuth, auth.HashToken(token)); err != nil {
		t.Fatalf("CreateAuthToken: %v", err)
	}
	return token
}

func okHandler(t *testing.T, sawUser *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.GetAuthUser(r) != nil {
			*sawUser = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	token := createUserWithToken(t, db, "mw@example.com", []string{string(model.RoleEditor)}, true)

	var sawUser bool
	handler := middleware.Authenticate(db)(okHandler(t, &sawUser))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bogus token", "Bearer not-a-real-token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sawUser = false
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && !sawUser {
				t.Error("handler did not see authenticated user")
			}
		})
	}
}

func TestAuthenticateDeactivatedAccount(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	token := createUserWithToken(t, db, "inactive@example.com", []string{string(model.RoleEditor)}, false)

	var sawUser bool
	handler := middleware.Authenticate(db)(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	token := createUserWithToken(t, db, "opt@example.com", []string{string(model.RoleViewer)}, true)

	var sawUser bool
	handler := middleware.OptionalAuthenticate(db)(okHandler(t, &sawUser))

	// Anonymous request passes through
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("anonymous status = %d, want %d", rec.Code, http.StatusOK)
	}
	if sawUser {
		t.Error("anonymous request should not carry an identity")
	}

	// Valid token resolves the identity
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !sawUser {
		t.Error("authenticated request lost its identity")
	}
}

func TestRequireRole(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	editorToken := createUserWithToken(t, db, "editor@example.com", []string{string(model.RoleEditor)}, true)
	adminToken := createUserWithToken(t, db, "admin@example.com", []string{string(model.RoleAdmin)}, true)

	var sawUser bool
	handler := middleware.Authenticate(db)(
		middleware.RequireRole(model.RoleAdmin)(okHandler(t, &sawUser)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+editorToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("editor status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequirePermission(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	viewerToken := createUserWithToken(t, db, "viewer@example.com", []string{string(model.RoleViewer)}, true)
	authorToken := createUserWithToken(t, db, "author@example.com", []string{string(model.RoleAuthor)}, true)

	var sawUser bool
	handler := middleware.Authenticate(db)(
		middleware.RequirePermission(model.PermCreatePosts)(okHandler(t, &sawUser)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+viewerToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+authorToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("author status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestPublicRateLimiter(t *testing.T) {
	limiter := middleware.NewPublicRateLimiter(1, 2)
	handler := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2 passes, third is throttled
	if got := send("192.0.2.1"); got != http.StatusOK {
		t.Errorf("first request = %d, want %d", got, http.StatusOK)
	}
	if got := send("192.0.2.1"); got != http.StatusOK {
		t.Errorf("second request = %d, want %d", got, http.StatusOK)
	}
	if got := send("192.0.2.1"); got != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want %d", got, http.StatusTooManyRequests)
	}

	// Different IP has its own bucket
	if got := send("192.0.2.2"); got != http.StatusOK {
		t.Errorf("other ip = %d, want %d", got, http.StatusOK)
	}
}
