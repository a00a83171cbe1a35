// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/folio-api/internal/auth"
	"github.com/olegiv/folio-api/internal/config"
	"github.com/olegiv/folio-api/internal/geoip"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/store"
	"github.com/olegiv/folio-api/internal/testutil"
)

// testEnv bundles the router and the raw store for seeding fixtures.
type testEnv struct {
	router  http.Handler
	db      *sql.DB
	queries *store.Queries
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	geo, err := geoip.NewLookup("")
	if err != nil {
		t.Fatalf("NewLookup: %v", err)
	}

	cfg := &config.Config{
		UploadsDir:      t.TempDir(),
		PublicRateLimit: 1000,
		PublicRateBurst: 1000,
	}

	return &testEnv{
		router:  Routes(db, cfg, geo, testutil.TestLogger()),
		db:      db,
		queries: store.New(db),
	}
}

// createUser inserts an active account with the given roles and returns
// its id and a valid bearer token.
func (e *testEnv) createUser(t *testing.T, email, password string, roles ...string) (int64, string) {
	t.Helper()
	ctx := context.Background()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user, err := e.queries.CreateUser(ctx, store.CreateUserParams{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := e.queries.ReplaceUserRoles(ctx, user.ID, roles); err != nil {
		t.Fatalf("ReplaceUserRoles: %v", err)
	}

	token, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := e.queries.CreateAuthToken(ctx, user.ID, model.TokenNameAuth, auth.HashToken(token)); err != nil {
		t.Fatalf("CreateAuthToken: %v", err)
	}
	return user.ID, token
}

// request performs a JSON request against the router.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, want, w.Body.String())
	}
}

// dataField digs a value out of the decoded Data map.
func dataField(t *testing.T, resp Response, key string) any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data is %T, want object", resp.Data)
	}
	return m[key]
}
