// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/store"
)

func submitBody(email string) map[string]any {
	return map[string]any{
		"name":    "Visitor",
		"email":   email,
		"subject": "Project inquiry",
		"message": "I would like to discuss a project.",
	}
}

func TestSubmitContact(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/contact", "", submitBody("visitor@example.com"))
	assertStatus(t, w, http.StatusCreated)
	resp := decodeResponse(t, w)
	if id, _ := dataField(t, resp, "id").(float64); id == 0 {
		t.Error("expected a submission id")
	}
}

func TestSubmitContactValidation(t *testing.T) {
	env := newTestEnv(t)

	body := submitBody("visitor@example.com")
	body["message"] = strings.Repeat("a", model.MaxContactMessageLength+1)
	w := env.request(t, http.MethodPost, "/contact", "", body)
	assertStatus(t, w, http.StatusUnprocessableEntity)

	w = env.request(t, http.MethodPost, "/contact", "", map[string]any{
		"email": "not-an-email",
	})
	assertStatus(t, w, http.StatusUnprocessableEntity)
	resp := decodeResponse(t, w)
	for _, field := range []string{"name", "email", "subject", "message"} {
		if resp.Errors[field] == "" {
			t.Errorf("expected an error for %q, got %v", field, resp.Errors)
		}
	}
}

func TestSubmitContactRateLimited(t *testing.T) {
	env := newTestEnv(t)

	// Distinct emails so only the per-IP window applies.
	for i := 0; i < 3; i++ {
		w := env.request(t, http.MethodPost, "/contact", "",
			submitBody(fmt.Sprintf("visitor%d@example.com", i)))
		assertStatus(t, w, http.StatusCreated)
	}

	w := env.request(t, http.MethodPost, "/contact", "", submitBody("visitor4@example.com"))
	assertStatus(t, w, http.StatusTooManyRequests)
}

func TestSubmitContactSpamKeyword(t *testing.T) {
	env := newTestEnv(t)

	body := submitBody("visitor@example.com")
	body["message"] = "You are a lottery WINNER, claim your prize"
	w := env.request(t, http.MethodPost, "/contact", "", body)

	// Spam gets the same success response as a clean submission.
	assertStatus(t, w, http.StatusCreated)
	resp := decodeResponse(t, w)
	id, _ := dataField(t, resp, "id").(float64)

	contact, err := env.queries.GetContactByID(context.Background(), int64(id))
	if err != nil {
		t.Fatalf("GetContactByID: %v", err)
	}
	if contact.Status != model.ContactStatusSpam {
		t.Errorf("status = %q, want %q", contact.Status, model.ContactStatusSpam)
	}
}

func TestGetContactMarksRead(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "editor@example.com", "password1", "editor")

	w := env.request(t, http.MethodPost, "/contact", "", submitBody("visitor@example.com"))
	assertStatus(t, w, http.StatusCreated)
	id, _ := dataField(t, decodeResponse(t, w), "id").(float64)

	w = env.request(t, http.MethodGet, fmt.Sprintf("/contacts/%d", int64(id)), token, nil)
	assertStatus(t, w, http.StatusOK)

	contact, err := env.queries.GetContactByID(context.Background(), int64(id))
	if err != nil {
		t.Fatalf("GetContactByID: %v", err)
	}
	if contact.Status != model.ContactStatusRead {
		t.Errorf("status = %q, want %q", contact.Status, model.ContactStatusRead)
	}
	if contact.ReadAt == nil {
		t.Error("expected read_at to be stamped")
	}
}

func TestUpdateContactStatusTimestamps(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "admin@example.com", "password1", "admin")

	w := env.request(t, http.MethodPost, "/contact", "", submitBody("visitor@example.com"))
	id, _ := dataField(t, decodeResponse(t, w), "id").(float64)
	path := fmt.Sprintf("/contacts/%d", int64(id))

	w = env.request(t, http.MethodPut, path, token, map[string]any{"status": "replied"})
	assertStatus(t, w, http.StatusOK)
	contact, err := env.queries.GetContactByID(context.Background(), int64(id))
	if err != nil {
		t.Fatalf("GetContactByID: %v", err)
	}
	if contact.ReadAt == nil || contact.RepliedAt == nil {
		t.Error("replied should backfill read_at and stamp replied_at")
	}

	// Back to new clears both timestamps.
	w = env.request(t, http.MethodPut, path, token, map[string]any{"status": "new"})
	assertStatus(t, w, http.StatusOK)
	contact, err = env.queries.GetContactByID(context.Background(), int64(id))
	if err != nil {
		t.Fatalf("GetContactByID: %v", err)
	}
	if contact.ReadAt != nil || contact.RepliedAt != nil {
		t.Error("new should clear read_at and replied_at")
	}

	w = env.request(t, http.MethodPut, path, token, map[string]any{"status": "weird"})
	assertStatus(t, w, http.StatusUnprocessableEntity)
}

func TestUpdateContactNotes(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "admin@example.com", "password1", "admin")

	w := env.request(t, http.MethodPost, "/contact", "", submitBody("visitor@example.com"))
	id, _ := dataField(t, decodeResponse(t, w), "id").(float64)

	w = env.request(t, http.MethodPut, fmt.Sprintf("/contacts/%d", int64(id)), token, map[string]any{
		"status": "archived",
		"notes":  "handled offline",
	})
	assertStatus(t, w, http.StatusOK)

	contact, err := env.queries.GetContactByID(context.Background(), int64(id))
	if err != nil {
		t.Fatalf("GetContactByID: %v", err)
	}
	if contact.Metadata["notes"] != "handled offline" {
		t.Errorf("metadata = %v", contact.Metadata)
	}
	if contact.Metadata["updated_by"] == "" {
		t.Error("expected updated_by in metadata")
	}
}

func TestBulkContacts(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "admin@example.com", "password1", "admin")

	var ids []int64
	for i := 0; i < 3; i++ {
		contact, err := env.queries.CreateContact(context.Background(), store.CreateContactParams{
			Name:    "Visitor",
			Email:   fmt.Sprintf("v%d@example.com", i),
			Subject: "Hi",
			Message: "Hello",
			Status:  model.ContactStatusNew,
		})
		if err != nil {
			t.Fatalf("CreateContact: %v", err)
		}
		ids = append(ids, contact.ID)
	}

	w := env.request(t, http.MethodPost, "/contacts/bulk", token, map[string]any{
		"action": model.ContactBulkMarkRead,
		"ids":    ids,
	})
	assertStatus(t, w, http.StatusOK)

	for _, id := range ids {
		contact, err := env.queries.GetContactByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetContactByID: %v", err)
		}
		if contact.Status != model.ContactStatusRead || contact.ReadAt == nil {
			t.Errorf("contact %d not marked read", id)
		}
	}
}

func TestExportContactsCSV(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "editor@example.com", "password1", "editor")

	w := env.request(t, http.MethodPost, "/contact", "", submitBody("visitor@example.com"))
	assertStatus(t, w, http.StatusCreated)

	w = env.request(t, http.MethodGet, "/contacts/export", token, nil)
	assertStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "visitor@example.com") {
		t.Errorf("row missing email: %q", lines[1])
	}
}

func TestContactStats(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "editor@example.com", "password1", "editor")

	w := env.request(t, http.MethodPost, "/contact", "", submitBody("visitor@example.com"))
	assertStatus(t, w, http.StatusCreated)

	w = env.request(t, http.MethodGet, "/contacts/stats", token, nil)
	assertStatus(t, w, http.StatusOK)
	resp := decodeResponse(t, w)
	if unread, _ := dataField(t, resp, "unread").(float64); unread != 1 {
		t.Errorf("unread = %v, want 1", unread)
	}
	if today, _ := dataField(t, resp, "today").(float64); today != 1 {
		t.Errorf("today = %v, want 1", today)
	}
}
