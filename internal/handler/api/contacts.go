// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/folio-api/internal/middleware"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/service"
	"github.com/olegiv/folio-api/internal/store"
	"github.com/olegiv/folio-api/internal/util"
)

// SubmitContactRequest is the public contact form payload.
type SubmitContactRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
	Company *string `json:"company,omitempty"`
	Subject string  `json:"subject"`
	Message string  `json:"message"`
}

// SubmitContact handles POST /contact. Flagged spam gets the same
// success response as a clean submission.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req SubmitContactRequest
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
	if strings.TrimSpace(req.Subject) == "" {
		fieldErrors["subject"] = "Subject is required"
	}
	if strings.TrimSpace(req.Message) == "" {
		fieldErrors["message"] = "Message is required"
	} else if len(req.Message) > model.MaxContactMessageLength {
		fieldErrors["message"] = fmt.Sprintf("Message may not exceed %d characters", model.MaxContactMessageLength)
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	contact, err := h.intake.Submit(r.Context(), service.Submission{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Company:        req.Company,
		Subject:        req.Subject,
		Message:        req.Message,
		IPAddress:      util.ClientIP(r),
		UserAgent:      r.UserAgent(),
		Referrer:       r.Referer(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
	})
	if err != nil {
		var rl *service.RateLimitError
		if errors.As(err, &rl) {
			WriteTooManyRequests(w, rl.Message)
			return
		}
		h.logger.Error("storing contact submission", "error", err)
		WriteInternalError(w, "Failed to submit message")
		return
	}

	WriteCreated(w, "Thank you for your message. We will get back to you soon.",
		map[string]any{"id": contact.ID})
}

// contactListMeta extends pagination with state counters.
type contactListMeta struct {
	PageMeta
	ByStatus []store.CountRow `json:"by_status"`
	Unread   int64            `json:"unread"`
}

// ListContacts handles GET /contacts.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, perPage, offset := parsePagination(r)

	filter, ok := parseContactFilter(w, r)
	if !ok {
		return
	}
	filter.Limit = perPage
	filter.Offset = offset

	contacts, err := h.queries.ListContacts(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list submissions")
		return
	}
	total, err := h.queries.CountContacts(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list submissions")
		return
	}
	byStatus, err := h.queries.ContactStatusCounts(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to list submissions")
		return
	}

	WriteSuccess(w, "", contacts, contactListMeta{
		PageMeta: pageMeta(total, page, perPage),
		ByStatus: byStatus,
		Unread:   statusCount(byStatus, model.ContactStatusNew),
	})
}

// parseContactFilter reads the shared list/export query parameters.
func parseContactFilter(w http.ResponseWriter, r *http.Request) (store.ContactFilter, bool) {
	q := r.URL.Query()
	filter := store.ContactFilter{
		Status:  q.Get("status"),
		Search:  q.Get("search"),
		SortBy:  q.Get("sort_by"),
		SortDir: q.Get("sort_dir"),
	}
	if filter.Status != "" && !model.ValidContactStatus(filter.Status) {
		WriteValidationError(w, map[string]string{"status": "Unknown status: " + filter.Status})
		return store.ContactFilter{}, false
	}
	if v := q.Get("recent_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			WriteValidationError(w, map[string]string{"recent_days": "Must be a positive number of days"})
			return store.ContactFilter{}, false
		}
		since := time.Now().UTC().AddDate(0, 0, -days)
		filter.Since = &since
	}
	return filter, true
}

func statusCount(rows []store.CountRow, status string) int64 {
	for _, row := range rows {
		if row.Name == status {
			return row.Count
		}
	}
	return 0
}

// GetContact handles GET /contacts/{id}. Viewing a new submission
// transitions it to read.
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contact, ok := requireEntityByID(w, r, "submission", func(id int64) (model.Contact, error) {
		return h.queries.GetContactByID(ctx, id)
	})
	if !ok {
		return
	}

	if contact.Status == model.ContactStatusNew {
		now := time.Now().UTC()
		updated, err := h.queries.UpdateContactStatus(ctx, store.UpdateContactStatusParams{
			ID:        contact.ID,
			Status:    model.ContactStatusRead,
			ReadAt:    &now,
			RepliedAt: contact.RepliedAt,
		})
		if err == nil {
			contact = updated
		}
	}

	WriteSuccess(w, "", contact, nil)
}

// UpdateContactRequest is the request body for PUT /contacts/{id}.
type UpdateContactRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

// UpdateContact handles PUT /contacts/{id}. Status transitions own the
// read/replied timestamps: read stamps read_at once, replied stamps
// replied_at and backfills read_at, new clears both.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser := middleware.GetAuthUser(r)

	contact, ok := requireEntityByID(w, r, "submission", func(id int64) (model.Contact, error) {
		return h.queries.GetContactByID(ctx, id)
	})
	if !ok {
		return
	}

	var req UpdateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return
	}
	if !model.ValidContactStatus(req.Status) {
		WriteValidationError(w, map[string]string{"status": "Unknown status: " + req.Status})
		return
	}

	now := time.Now().UTC()
	params := store.UpdateContactStatusParams{
		ID:        contact.ID,
		Status:    req.Status,
		ReadAt:    contact.ReadAt,
		RepliedAt: contact.RepliedAt,
	}
	switch req.Status {
	case model.ContactStatusRead:
		if params.ReadAt == nil {
			params.ReadAt = &now
		}
	case model.ContactStatusReplied:
		if params.RepliedAt == nil {
			params.RepliedAt = &now
		}
		if params.ReadAt == nil {
			params.ReadAt = &now
		}
	case model.ContactStatusNew:
		params.ReadAt = nil
		params.RepliedAt = nil
	}

	if req.Notes != nil {
		metadata := make(map[string]string, len(contact.Metadata)+3)
		for k, v := range contact.Metadata {
			metadata[k] = v
		}
		metadata["notes"] = *req.Notes
		metadata["updated_by"] = authUser.User.Name
		metadata["updated_at"] = now.Format(time.RFC3339)
		if err := h.queries.UpdateContactMetadata(ctx, contact.ID, metadata); err != nil {
			WriteInternalError(w, "Failed to update submission")
			return
		}
	}

	updated, err := h.queries.UpdateContactStatus(ctx, params)
	if err != nil {
		WriteInternalError(w, "Failed to update submission")
		return
	}

	WriteSuccess(w, "Submission updated", updated, nil)
}

// DeleteContact handles DELETE /contacts/{id}.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contact, ok := requireEntityByID(w, r, "submission", func(id int64) (model.Contact, error) {
		return h.queries.GetContactByID(ctx, id)
	})
	if !ok {
		return
	}

	if err := h.queries.DeleteContact(ctx, contact.ID); err != nil {
		WriteInternalError(w, "Failed to delete submission")
		return
	}

	WriteSuccess(w, "Submission deleted", nil, nil)
}

// BulkContacts handles POST /contacts/bulk.
func (h *Handler) BulkContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		WriteValidationError(w, map[string]string{"ids": "At least one id is required"})
		return
	}

	var err error
	switch req.Action {
	case model.ContactBulkMarkRead:
		err = h.queries.BulkMarkContactsRead(ctx, req.IDs)
	case model.ContactBulkMarkReplied:
		err = h.queries.BulkMarkContactsReplied(ctx, req.IDs)
	case model.ContactBulkArchive:
		err = h.queries.BulkSetContactsStatus(ctx, req.IDs, model.ContactStatusArchived)
	case model.ContactBulkMarkSpam:
		err = h.queries.BulkSetContactsStatus(ctx, req.IDs, model.ContactStatusSpam)
	case model.ContactBulkDelete:
		err = h.queries.DeleteContacts(ctx, req.IDs)
	default:
		WriteValidationError(w, map[string]string{"action": "Unknown action: " + req.Action})
		return
	}
	if err != nil {
		WriteInternalError(w, "Failed to apply bulk action")
		return
	}

	WriteSuccess(w, "Bulk action applied", map[string]any{
		"action":   req.Action,
		"affected": len(req.IDs),
	}, nil)
}

// ContactStatsData is returned by GET /contacts/stats.
type ContactStatsData struct {
	ByStatus         []store.CountRow `json:"by_status"`
	Unread           int64            `json:"unread"`
	Today            int64            `json:"today"`
	ThisWeek         int64            `json:"this_week"`
	ThisMonth        int64            `json:"this_month"`
	ResponseRate     float64          `json:"response_rate"`
	AvgResponseHours float64          `json:"avg_response_hours"`
	TopSubjects      []store.CountRow `json:"top_subjects"`
}

// ContactStats handles GET /contacts/stats.
func (h *Handler) ContactStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UTC()

	byStatus, err := h.queries.ContactStatusCounts(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to load submission stats")
		return
	}

	today, err := h.queries.CountContactsSince(ctx, now.Truncate(24*time.Hour))
	if err != nil {
		WriteInternalError(w, "Failed to load submission stats")
		return
	}
	week, err := h.queries.CountContactsSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		WriteInternalError(w, "Failed to load submission stats")
		return
	}
	month, err := h.queries.CountContactsSince(ctx, now.AddDate(0, -1, 0))
	if err != nil {
		WriteInternalError(w, "Failed to load submission stats")
		return
	}

	response, err := h.queries.GetContactResponseStats(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to load submission stats")
		return
	}
	var responseRate float64
	if response.Total > 0 {
		responseRate = float64(response.Replied) / float64(response.Total) * 100
	}

	topSubjects, err := h.queries.TopContactSubjects(ctx, 5)
	if err != nil {
		WriteInternalError(w, "Failed to load submission stats")
		return
	}

	WriteSuccess(w, "", ContactStatsData{
		ByStatus:         byStatus,
		Unread:           statusCount(byStatus, model.ContactStatusNew),
		Today:            today,
		ThisWeek:         week,
		ThisMonth:        month,
		ResponseRate:     responseRate,
		AvgResponseHours: response.AvgResponseHours,
		TopSubjects:      topSubjects,
	}, nil)
}

// ExportContacts handles GET /contacts/export: streams matching
// submissions as CSV, honoring the list filters.
func (h *Handler) ExportContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, ok := parseContactFilter(w, r)
	if !ok {
		return
	}

	contacts, err := h.queries.ListContacts(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to export submissions")
		return
	}

	filename := "contacts_" + time.Now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"id", "name", "email", "phone", "company", "subject", "message",
		"status", "ip_address", "created_at", "read_at", "replied_at",
	})

	derefStr := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	derefTime := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	for _, c := range contacts {
		_ = cw.Write([]string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Email,
			derefStr(c.Phone),
			derefStr(c.Company),
			c.Subject,
			c.Message,
			c.Status,
			derefStr(c.IPAddress),
			c.CreatedAt.Format(time.RFC3339),
			derefTime(c.ReadAt),
			derefTime(c.RepliedAt),
		})
	}
	cw.Flush()
}
