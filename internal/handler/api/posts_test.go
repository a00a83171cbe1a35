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

func (e *testEnv) seedPost(t *testing.T, title, slug string, published bool) model.Post {
	t.Helper()
	post, err := e.queries.CreatePost(context.Background(), store.CreatePostParams{
		Title:       title,
		Slug:        slug,
		FullContent: "Some body text for the post.",
		Author:      "Test Author",
		IsPublished: published,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return post
}

func TestCreatePostDerivesSlugAndExcerpt(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "author@example.com", "password1", "author")

	w := env.request(t, http.MethodPost, "/posts", token, map[string]any{
		"title":        "Hello, World!",
		"full_content": "# Heading\n\nBody text.",
		"author":       "Jamie",
	})
	assertStatus(t, w, http.StatusCreated)
	resp := decodeResponse(t, w)
	if slug, _ := dataField(t, resp, "slug").(string); slug != "hello-world" {
		t.Errorf("slug = %q, want %q", slug, "hello-world")
	}
	if excerpt, _ := dataField(t, resp, "excerpt").(string); excerpt == "" {
		t.Error("expected a derived excerpt")
	}
}

func TestCreatePostDuplicateTitle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "author@example.com", "password1", "author")
	env.seedPost(t, "Existing Post", "existing-post", true)

	w := env.request(t, http.MethodPost, "/posts", token, map[string]any{
		"title":        "Existing Post",
		"full_content": "Body.",
		"author":       "Jamie",
	})
	assertStatus(t, w, http.StatusUnprocessableEntity)
	resp := decodeResponse(t, w)
	if resp.Errors["title"] == "" {
		t.Errorf("expected a title error, got %v", resp.Errors)
	}
}

func TestGetPostBySlugCountsViews(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "viewer@example.com", "password1", "viewer")
	published := env.seedPost(t, "Published", "published", true)
	draft := env.seedPost(t, "Draft", "draft", false)

	w := env.request(t, http.MethodGet, "/posts/published", token, nil)
	assertStatus(t, w, http.StatusOK)
	resp := decodeResponse(t, w)
	if views, _ := dataField(t, resp, "views_count").(float64); views != 1 {
		t.Errorf("views_count = %v, want 1", views)
	}

	// Drafts are readable with the right permission but never counted.
	w = env.request(t, http.MethodGet, "/posts/draft", token, nil)
	assertStatus(t, w, http.StatusOK)

	got, err := env.queries.GetPostByID(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("GetPostByID: %v", err)
	}
	if got.ViewsCount != 0 {
		t.Errorf("draft views = %d, want 0", got.ViewsCount)
	}
	got, err = env.queries.GetPostByID(context.Background(), published.ID)
	if err != nil {
		t.Fatalf("GetPostByID: %v", err)
	}
	if got.ViewsCount != 1 {
		t.Errorf("published views = %d, want 1", got.ViewsCount)
	}
}

func TestCreatePostForbiddenForViewer(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "viewer@example.com", "password1", "viewer")

	w := env.request(t, http.MethodPost, "/posts", token, map[string]any{
		"title":        "Nope",
		"full_content": "Body.",
		"author":       "Jamie",
	})
	assertStatus(t, w, http.StatusForbidden)
}

func TestTogglePostPublishedNeedsPublishPermission(t *testing.T) {
	env := newTestEnv(t)
	post := env.seedPost(t, "Draft", "draft", false)

	_, authorToken := env.createUser(t, "author@example.com", "password1", "author")
	w := env.request(t, http.MethodPost, "/posts/1/toggle-published", authorToken, nil)
	assertStatus(t, w, http.StatusForbidden)

	_, editorToken := env.createUser(t, "editor@example.com", "password1", "editor")
	w = env.request(t, http.MethodPost, "/posts/1/toggle-published", editorToken, nil)
	assertStatus(t, w, http.StatusOK)

	got, err := env.queries.GetPostByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("GetPostByID: %v", err)
	}
	if !got.IsPublished {
		t.Error("expected post to be published after toggle")
	}
}

func TestBulkPosts(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "editor@example.com", "password1", "editor")
	a := env.seedPost(t, "One", "one", false)
	b := env.seedPost(t, "Two", "two", false)

	w := env.request(t, http.MethodPost, "/posts/bulk", token, map[string]any{
		"action": "publish",
		"ids":    []int64{a.ID, b.ID},
	})
	assertStatus(t, w, http.StatusOK)

	for _, id := range []int64{a.ID, b.ID} {
		got, err := env.queries.GetPostByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetPostByID: %v", err)
		}
		if !got.IsPublished {
			t.Errorf("post %d not published", id)
		}
	}

	w = env.request(t, http.MethodPost, "/posts/bulk", token, map[string]any{
		"action": "destroy-everything",
		"ids":    []int64{a.ID},
	})
	assertStatus(t, w, http.StatusUnprocessableEntity)
}

func TestBulkPostsActionPermissions(t *testing.T) {
	env := newTestEnv(t)
	post := env.seedPost(t, "Keeper", "keeper", false)

	// Editors can edit but not delete.
	_, editorToken := env.createUser(t, "editor@example.com", "password1", "editor")
	w := env.request(t, http.MethodPost, "/posts/bulk", editorToken, map[string]any{
		"action": "delete",
		"ids":    []int64{post.ID},
	})
	assertStatus(t, w, http.StatusForbidden)

	// Authors reach the endpoint but cannot publish.
	_, authorToken := env.createUser(t, "author@example.com", "password1", "author")
	w = env.request(t, http.MethodPost, "/posts/bulk", authorToken, map[string]any{
		"action": "publish",
		"ids":    []int64{post.ID},
	})
	assertStatus(t, w, http.StatusForbidden)

	if _, err := env.queries.GetPostByID(context.Background(), post.ID); err != nil {
		t.Fatalf("GetPostByID: %v", err)
	}

	_, adminToken := env.createUser(t, "admin@example.com", "password1", "admin")
	w = env.request(t, http.MethodPost, "/posts/bulk", adminToken, map[string]any{
		"action": "delete",
		"ids":    []int64{post.ID},
	})
	assertStatus(t, w, http.StatusOK)
	if _, err := env.queries.GetPostByID(context.Background(), post.ID); err == nil {
		t.Error("expected post to be deleted")
	}
}

func TestUpdatePostPartial(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "author@example.com", "password1", "author")
	post := env.seedPost(t, "Original Title", "original-title", true)

	w := env.request(t, http.MethodPut, "/posts/1", token, map[string]any{
		"category": "go",
	})
	assertStatus(t, w, http.StatusOK)

	got, err := env.queries.GetPostByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("GetPostByID: %v", err)
	}
	if got.Title != "Original Title" {
		t.Errorf("title changed to %q", got.Title)
	}
	if got.Category == nil || *got.Category != "go" {
		t.Errorf("category = %v, want go", got.Category)
	}
}

func TestDeletePostNeedsAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedPost(t, "Doomed", "doomed", true)

	_, editorToken := env.createUser(t, "editor@example.com", "password1", "editor")
	w := env.request(t, http.MethodDelete, "/posts/1", editorToken, nil)
	assertStatus(t, w, http.StatusForbidden)

	_, adminToken := env.createUser(t, "admin@example.com", "password1", "admin")
	w = env.request(t, http.MethodDelete, "/posts/1", adminToken, nil)
	assertStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodGet, "/posts/doomed", adminToken, nil)
	assertStatus(t, w, http.StatusNotFound)
}
