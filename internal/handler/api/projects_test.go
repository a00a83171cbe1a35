// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/store"
)

func (e *testEnv) seedProject(t *testing.T, title, slug, status string, published bool) model.Project {
	t.Helper()
	project, err := e.queries.CreateProject(context.Background(), store.CreateProjectParams{
		Title:       title,
		Slug:        slug,
		Description: "A project.",
		Category:    "web",
		Status:      status,
		IsPublished: published,
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return project
}

func TestCreateProjectDefaultsStatus(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "author@example.com", "password1", "author")

	w := env.request(t, http.MethodPost, "/projects", token, map[string]any{
		"title":        "New Site",
		"description":  "A rebuild of the company site.",
		"category":     "web",
		"technologies": []string{"Go", "SQLite"},
	})
	assertStatus(t, w, http.StatusCreated)
	resp := decodeResponse(t, w)
	if status, _ := dataField(t, resp, "status").(string); status != model.ProjectStatusPlanning {
		t.Errorf("status = %q, want %q", status, model.ProjectStatusPlanning)
	}
	if slug, _ := dataField(t, resp, "slug").(string); slug != "new-site" {
		t.Errorf("slug = %q", slug)
	}
}

func TestCreateProjectRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "author@example.com", "password1", "author")

	w := env.request(t, http.MethodPost, "/projects", token, map[string]any{
		"title":       "Bad Status",
		"description": "x",
		"category":    "web",
		"status":      "abandoned",
	})
	assertStatus(t, w, http.StatusUnprocessableEntity)
}

func TestListProjectsFilterByStatus(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "viewer@example.com", "password1", "viewer")
	env.seedProject(t, "Done", "done", model.ProjectStatusCompleted, true)
	env.seedProject(t, "WIP", "wip", model.ProjectStatusInProgress, true)

	w := env.request(t, http.MethodGet, "/projects?status="+model.ProjectStatusCompleted, token, nil)
	assertStatus(t, w, http.StatusOK)
	resp := decodeResponse(t, w)
	items, ok := resp.Data.([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one project, got %v", resp.Data)
	}

	w = env.request(t, http.MethodGet, "/projects?status=bogus", token, nil)
	assertStatus(t, w, http.StatusUnprocessableEntity)
}

func TestToggleProjectFeatured(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "author@example.com", "password1", "author")
	project := env.seedProject(t, "Spotlight", "spotlight", model.ProjectStatusCompleted, true)

	w := env.request(t, http.MethodPost, "/projects/1/toggle-featured", token, nil)
	assertStatus(t, w, http.StatusOK)

	got, err := env.queries.GetProjectByID(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("GetProjectByID: %v", err)
	}
	if !got.IsFeatured {
		t.Error("expected project to be featured")
	}
}

func TestGetProjectBySlugCountsViews(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "viewer@example.com", "password1", "viewer")
	project := env.seedProject(t, "Shipped", "shipped", model.ProjectStatusCompleted, true)

	w := env.request(t, http.MethodGet, "/projects/shipped", token, nil)
	assertStatus(t, w, http.StatusOK)

	got, err := env.queries.GetProjectByID(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("GetProjectByID: %v", err)
	}
	if got.ViewsCount != 1 {
		t.Errorf("views = %d, want 1", got.ViewsCount)
	}
}
