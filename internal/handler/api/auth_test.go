// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     "Jamie Vest",
		"email":    "Jamie@Example.com",
		"password": "correct-horse",
	})
	assertStatus(t, w, http.StatusCreated)
	resp := decodeResponse(t, w)
	if !resp.Success {
		t.Fatal("expected success response")
	}
	if token, _ := dataField(t, resp, "token").(string); token == "" {
		t.Error("expected a token in the register response")
	}

	// Email is stored lowercased, login with either casing works.
	w = env.request(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "jamie@example.com",
		"password": "correct-horse",
	})
	assertStatus(t, w, http.StatusOK)
	resp = decodeResponse(t, w)
	token, _ := dataField(t, resp, "token").(string)
	if token == "" {
		t.Fatal("expected a token in the login response")
	}

	w = env.request(t, http.MethodGet, "/auth/me", token, nil)
	assertStatus(t, w, http.StatusOK)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "taken@example.com", "password1", "viewer")

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing name", map[string]any{"email": "a@b.com", "password": "password1"}, "name"},
		{"bad email", map[string]any{"name": "A", "email": "nope", "password": "password1"}, "email"},
		{"short password", map[string]any{"name": "A", "email": "a@b.com", "password": "short"}, "password"},
		{"taken email", map[string]any{"name": "A", "email": "taken@example.com", "password": "password1"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.request(t, http.MethodPost, "/auth/register", "", tt.body)
			assertStatus(t, w, http.StatusUnprocessableEntity)
			resp := decodeResponse(t, w)
			if resp.Errors[tt.field] == "" {
				t.Errorf("expected an error for field %q, got %v", tt.field, resp.Errors)
			}
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "user@example.com", "password1", "viewer")

	// Unknown account and wrong password are indistinguishable.
	for _, body := range []map[string]any{
		{"email": "nobody@example.com", "password": "password1"},
		{"email": "user@example.com", "password": "wrong-password"},
	} {
		w := env.request(t, http.MethodPost, "/auth/login", "", body)
		assertStatus(t, w, http.StatusUnauthorized)
		resp := decodeResponse(t, w)
		if resp.Message != "Invalid credentials" {
			t.Errorf("message = %q, want %q", resp.Message, "Invalid credentials")
		}
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.createUser(t, "gone@example.com", "password1", "viewer")
	if err := env.queries.SetUserActive(context.Background(), id, false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}

	w := env.request(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "gone@example.com",
		"password": "password1",
	})
	assertStatus(t, w, http.StatusForbidden)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "user@example.com", "password1", "viewer")

	w := env.request(t, http.MethodPost, "/auth/logout", token, nil)
	assertStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodGet, "/auth/me", token, nil)
	assertStatus(t, w, http.StatusUnauthorized)
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "user@example.com", "password1", "viewer")

	w := env.request(t, http.MethodPost, "/auth/refresh", token, nil)
	assertStatus(t, w, http.StatusOK)
	resp := decodeResponse(t, w)
	fresh, _ := dataField(t, resp, "token").(string)
	if fresh == "" || fresh == token {
		t.Fatal("expected a new token from refresh")
	}

	// Old token is gone, new one works.
	w = env.request(t, http.MethodGet, "/auth/me", token, nil)
	assertStatus(t, w, http.StatusUnauthorized)
	w = env.request(t, http.MethodGet, "/auth/me", fresh, nil)
	assertStatus(t, w, http.StatusOK)
}

func TestUpdateProfilePasswordChange(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "user@example.com", "password1", "viewer")

	w := env.request(t, http.MethodPut, "/auth/profile", token, map[string]any{
		"current_password":      "wrong",
		"password":              "password2",
		"password_confirmation": "password2",
	})
	assertStatus(t, w, http.StatusUnprocessableEntity)

	w = env.request(t, http.MethodPut, "/auth/profile", token, map[string]any{
		"current_password":      "password1",
		"password":              "password2",
		"password_confirmation": "password2",
	})
	assertStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "user@example.com",
		"password": "password2",
	})
	assertStatus(t, w, http.StatusOK)
}
