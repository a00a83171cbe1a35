// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/olegiv/folio-api/internal/middleware"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/service"
	"github.com/olegiv/folio-api/internal/store"
	"github.com/olegiv/folio-api/internal/util"
)

// DownloadResponse is a download with its formatted file size.
type DownloadResponse struct {
	model.Download
	FormattedFileSize string `json:"formatted_file_size"`
}

func downloadToResponse(d model.Download) DownloadResponse {
	return DownloadResponse{
		Download:          d,
		FormattedFileSize: d.FormattedFileSize(),
	}
}

func downloadsToResponses(downloads []model.Download) []DownloadResponse {
	responses := make([]DownloadResponse, 0, len(downloads))
	for _, d := range downloads {
		responses = append(responses, downloadToResponse(d))
	}
	return responses
}

// ListDownloads handles GET /downloads.
func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, perPage, offset := parsePagination(r)
	q := r.URL.Query()

	filter := store.DownloadFilter{
		Search:               q.Get("search"),
		Category:             q.Get("category"),
		FileType:             q.Get("file_type"),
		Author:               q.Get("author"),
		Featured:             parseBoolQuery(r, "featured"),
		Published:            parseBoolQuery(r, "published"),
		RequiresRegistration: parseBoolQuery(r, "requires_registration"),
		SortBy:               q.Get("sort_by"),
		SortDir:              q.Get("sort_dir"),
		Limit:                perPage,
		Offset:               offset,
	}

	downloads, err := h.queries.ListDownloads(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list downloads")
		return
	}
	total, err := h.queries.CountDownloads(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list downloads")
		return
	}

	WriteSuccess(w, "", downloadsToResponses(downloads), pageMeta(total, page, perPage))
}

// CreateDownload handles POST /downloads. The payload must be a
// multipart form with the file under "file".
func (h *Handler) CreateDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !isMultipart(r) {
		WriteBadRequest(w, "Expected a multipart form with a file")
		return
	}
	if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
		WriteBadRequest(w, "Invalid multipart form")
		return
	}

	title := r.FormValue("title")
	category := r.FormValue("category")
	fieldErrors := make(map[string]string)
	if strings.TrimSpace(title) == "" {
		fieldErrors["title"] = "Title is required"
	}
	if strings.TrimSpace(category) == "" {
		fieldErrors["category"] = "Category is required"
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		fieldErrors["file"] = "File is required"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}
	defer func() { _ = file.Close() }()

	slug, ok := resolveSlug(w, title, r.FormValue("slug"))
	if !ok {
		return
	}
	if !checkUnique(w, "title", "Title already exists", func() (int64, error) {
		return h.queries.CountDownloadTitle(ctx, title, 0)
	}) {
		return
	}
	if !checkUnique(w, "slug", "Slug already exists", func() (int64, error) {
		return h.queries.CountDownloadSlug(ctx, slug, 0)
	}) {
		return
	}

	stored, err := h.storage.SaveDownloadFile(file, header)
	if err != nil {
		WriteValidationError(w, map[string]string{"file": err.Error()})
		return
	}

	params := store.CreateDownloadParams{
		Title:                strings.TrimSpace(title),
		Slug:                 slug,
		FileName:             stored.Name,
		FilePath:             stored.Path,
		FileSize:             stored.Size,
		FileType:             stored.Ext,
		MimeType:             stored.MimeType,
		Category:             strings.TrimSpace(category),
		IsFeatured:           r.FormValue("is_featured") == "true",
		IsPublished:          r.FormValue("is_published") == "true",
		RequiresRegistration: r.FormValue("requires_registration") == "true",
	}
	if v := r.FormValue("description"); v != "" {
		params.Description = &v
	}
	if v := r.FormValue("author"); v != "" {
		params.Author = &v
	}
	if v := r.FormValue("version"); v != "" {
		params.Version = &v
	}
	if v := r.FormValue("file_url"); v != "" {
		params.FileURL = &v
	}
	if v := r.FormValue("tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				params.Tags = append(params.Tags, tag)
			}
		}
	}

	download, err := h.queries.CreateDownload(ctx, params)
	if err != nil {
		h.logger.Error("creating download", "error", err)
		_ = h.storage.Delete(stored.Path)
		WriteInternalError(w, "Failed to create download")
		return
	}

	WriteCreated(w, "Download created", downloadToResponse(download))
}

// GetDownload handles GET /downloads/{idOrSlug}.
func (h *Handler) GetDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	download, ok := fetchByIDOrSlug(w, r, "download",
		func(id int64) (model.Download, error) { return h.queries.GetDownloadByID(ctx, id) },
		func(slug string) (model.Download, error) { return h.queries.GetDownloadBySlug(ctx, slug) })
	if !ok {
		return
	}

	WriteSuccess(w, "", downloadToResponse(download), nil)
}

// UpdateDownloadRequest is the request body for PUT /downloads/{id}.
type UpdateDownloadRequest struct {
	Title                *string   `json:"title,omitempty"`
	Slug                 *string   `json:"slug,omitempty"`
	Description          *string   `json:"description,omitempty"`
	FileURL              *string   `json:"file_url,omitempty"`
	Category             *string   `json:"category,omitempty"`
	Tags                 *[]string `json:"tags,omitempty"`
	Author               *string   `json:"author,omitempty"`
	Version              *string   `json:"version,omitempty"`
	IsFeatured           *bool     `json:"is_featured,omitempty"`
	IsPublished          *bool     `json:"is_published,omitempty"`
	RequiresRegistration *bool     `json:"requires_registration,omitempty"`
}

// UpdateDownload handles PUT /downloads/{id}. Multipart forms may carry a
// replacement file under "file".
func (h *Handler) UpdateDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	existing, ok := requireEntityByID(w, r, "download", func(id int64) (model.Download, error) {
		return h.queries.GetDownloadByID(ctx, id)
	})
	if !ok {
		return
	}

	var req UpdateDownloadRequest
	var replacement *service.StoredFile
	if isMultipart(r) {
		if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
			WriteBadRequest(w, "Invalid multipart form")
			return
		}
		formStr := func(name string) *string {
			if vals, fok := r.MultipartForm.Value[name]; fok && len(vals) > 0 {
				v := vals[0]
				return &v
			}
			return nil
		}
		req.Title = formStr("title")
		req.Slug = formStr("slug")
		req.Description = formStr("description")
		req.FileURL = formStr("file_url")
		req.Category = formStr("category")
		req.Author = formStr("author")
		req.Version = formStr("version")
		boolField := func(name string) *bool {
			if v := formStr(name); v != nil {
				b := *v == "true"
				return &b
			}
			return nil
		}
		req.IsFeatured = boolField("is_featured")
		req.IsPublished = boolField("is_published")
		req.RequiresRegistration = boolField("requires_registration")
		if v := formStr("tags"); v != nil {
			var tags []string
			for _, tag := range strings.Split(*v, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					tags = append(tags, tag)
				}
			}
			req.Tags = &tags
		}

		file, header, err := r.FormFile("file")
		if err == nil {
			defer func() { _ = file.Close() }()
			stored, saveErr := h.storage.SaveDownloadFile(file, header)
			if saveErr != nil {
				WriteValidationError(w, map[string]string{"file": saveErr.Error()})
				return
			}
			replacement = stored
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteBadRequest(w, "Invalid JSON body")
			return
		}
	}

	params := store.UpdateDownloadParams{
		ID:                   existing.ID,
		Title:                existing.Title,
		Slug:                 existing.Slug,
		Description:          existing.Description,
		FileName:             existing.FileName,
		FilePath:             existing.FilePath,
		FileURL:              existing.FileURL,
		FileSize:             existing.FileSize,
		FileType:             existing.FileType,
		MimeType:             existing.MimeType,
		Category:             existing.Category,
		Tags:                 existing.Tags,
		Author:               existing.Author,
		Version:              existing.Version,
		IsFeatured:           existing.IsFeatured,
		IsPublished:          existing.IsPublished,
		RequiresRegistration: existing.RequiresRegistration,
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			WriteValidationError(w, map[string]string{"title": "Title is required"})
			return
		}
		if !checkUnique(w, "title", "Title already exists", func() (int64, error) {
			return h.queries.CountDownloadTitle(ctx, *req.Title, existing.ID)
		}) {
			return
		}
		params.Title = strings.TrimSpace(*req.Title)
	}
	if req.Slug != nil {
		slug, slugOK := resolveSlug(w, params.Title, *req.Slug)
		if !slugOK {
			return
		}
		if !checkUnique(w, "slug", "Slug already exists", func() (int64, error) {
			return h.queries.CountDownloadSlug(ctx, slug, existing.ID)
		}) {
			return
		}
		params.Slug = slug
	}
	if req.Description != nil {
		params.Description = req.Description
	}
	if req.FileURL != nil {
		params.FileURL = req.FileURL
	}
	if req.Category != nil {
		if strings.TrimSpace(*req.Category) == "" {
			WriteValidationError(w, map[string]string{"category": "Category is required"})
			return
		}
		params.Category = strings.TrimSpace(*req.Category)
	}
	if req.Tags != nil {
		params.Tags = *req.Tags
	}
	if req.Author != nil {
		params.Author = req.Author
	}
	if req.Version != nil {
		params.Version = req.Version
	}
	if req.IsFeatured != nil {
		params.IsFeatured = *req.IsFeatured
	}
	if req.IsPublished != nil {
		params.IsPublished = *req.IsPublished
	}
	if req.RequiresRegistration != nil {
		params.RequiresRegistration = *req.RequiresRegistration
	}
	if replacement != nil {
		_ = h.storage.Delete(existing.FilePath)
		params.FileName = replacement.Name
		params.FilePath = replacement.Path
		params.FileSize = replacement.Size
		params.FileType = replacement.Ext
		params.MimeType = replacement.MimeType
	}

	download, err := h.queries.UpdateDownload(ctx, params)
	if err != nil {
		h.logger.Error("updating download", "error", err, "download_id", existing.ID)
		WriteInternalError(w, "Failed to update download")
		return
	}

	WriteSuccess(w, "Download updated", downloadToResponse(download), nil)
}

// DeleteDownload handles DELETE /downloads/{id}.
func (h *Handler) DeleteDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	download, ok := requireEntityByID(w, r, "download", func(id int64) (model.Download, error) {
		return h.queries.GetDownloadByID(ctx, id)
	})
	if !ok {
		return
	}

	_ = h.storage.Delete(download.FilePath)
	if err := h.queries.DeleteDownload(ctx, download.ID); err != nil {
		WriteInternalError(w, "Failed to delete download")
		return
	}

	WriteSuccess(w, "Download deleted", nil, nil)
}

// ServeDownloadFile handles GET /downloads/{idOrSlug}/download. Runs
// behind optional authentication: registration-gated files need an
// identity.
func (h *Handler) ServeDownloadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	download, ok := fetchByIDOrSlug(w, r, "download",
		func(id int64) (model.Download, error) { return h.queries.GetDownloadByID(ctx, id) },
		func(slug string) (model.Download, error) { return h.queries.GetDownloadBySlug(ctx, slug) })
	if !ok {
		return
	}

	if !download.IsPublished {
		WriteForbidden(w, "This download is not available")
		return
	}
	if download.RequiresRegistration && middleware.GetAuthUser(r) == nil {
		WriteUnauthorized(w, "Registration required to download this file")
		return
	}
	if !h.storage.Exists(download.FilePath) {
		h.logger.Error("download file missing on disk", "download_id", download.ID, "path", download.FilePath)
		WriteNotFound(w, "file")
		return
	}

	if err := h.queries.IncrementDownloadCount(ctx, download.ID); err != nil {
		h.logger.Warn("incrementing download count", "error", err, "download_id", download.ID)
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+download.FileName+`"`)
	w.Header().Set("Content-Type", download.MimeType)
	http.ServeFile(w, r, h.storage.Abs(download.FilePath))
}

// ToggleDownloadPublished handles POST /downloads/{id}/toggle-published.
func (h *Handler) ToggleDownloadPublished(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	download, ok := requireEntityByID(w, r, "download", func(id int64) (model.Download, error) {
		return h.queries.GetDownloadByID(ctx, id)
	})
	if !ok {
		return
	}

	if err := h.queries.SetDownloadPublished(ctx, download.ID, !download.IsPublished); err != nil {
		WriteInternalError(w, "Failed to update download")
		return
	}
	download, err := h.queries.GetDownloadByID(ctx, download.ID)
	if err != nil {
		WriteInternalError(w, "Failed to update download")
		return
	}

	message := "Download unpublished"
	if download.IsPublished {
		message = "Download published"
	}
	WriteSuccess(w, message, downloadToResponse(download), nil)
}

// ToggleDownloadFeatured handles POST /downloads/{id}/toggle-featured.
func (h *Handler) ToggleDownloadFeatured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	download, ok := requireEntityByID(w, r, "download", func(id int64) (model.Download, error) {
		return h.queries.GetDownloadByID(ctx, id)
	})
	if !ok {
		return
	}

	if err := h.queries.SetDownloadFeatured(ctx, download.ID, !download.IsFeatured); err != nil {
		WriteInternalError(w, "Failed to update download")
		return
	}
	download, err := h.queries.GetDownloadByID(ctx, download.ID)
	if err != nil {
		WriteInternalError(w, "Failed to update download")
		return
	}

	message := "Download unfeatured"
	if download.IsFeatured {
		message = "Download featured"
	}
	WriteSuccess(w, message, downloadToResponse(download), nil)
}

// BulkDownloads handles POST /downloads/bulk.
func (h *Handler) BulkDownloads(w http.ResponseWriter, r *http.Request) {
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
	case model.BulkActionPublish:
		if !requireActionPermission(w, r, model.PermPublishDownloads) {
			return
		}
		err = h.queries.SetDownloadsPublished(ctx, req.IDs, true)
	case model.BulkActionUnpublish:
		if !requireActionPermission(w, r, model.PermPublishDownloads) {
			return
		}
		err = h.queries.SetDownloadsPublished(ctx, req.IDs, false)
	case model.BulkActionFeature:
		err = h.queries.SetDownloadsFeatured(ctx, req.IDs, true)
	case model.BulkActionUnfeature:
		err = h.queries.SetDownloadsFeatured(ctx, req.IDs, false)
	case model.BulkActionDelete:
		if !requireActionPermission(w, r, model.PermDeleteDownloads) {
			return
		}
		// Remove the stored files before the rows go away
		for _, id := range req.IDs {
			if d, getErr := h.queries.GetDownloadByID(ctx, id); getErr == nil {
				_ = h.storage.Delete(d.FilePath)
			}
		}
		err = h.queries.DeleteDownloads(ctx, req.IDs)
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

// DownloadStatsData is returned by GET /downloads/stats.
type DownloadStatsData struct {
	store.DownloadTotals
	FormattedTotalSize string             `json:"formatted_total_size"`
	TopByDownloads     []DownloadResponse `json:"top_by_downloads"`
}

// DownloadStats handles GET /downloads/stats.
func (h *Handler) DownloadStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totals, err := h.queries.GetDownloadTotals(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to load download stats")
		return
	}
	top, err := h.queries.TopDownloads(ctx, 5)
	if err != nil {
		WriteInternalError(w, "Failed to load download stats")
		return
	}

	WriteSuccess(w, "", DownloadStatsData{
		DownloadTotals:     totals,
		FormattedTotalSize: util.FormatBytes(totals.TotalFileSize),
		TopByDownloads:     downloadsToResponses(top),
	}, nil)
}

// DownloadCategories handles GET /downloads/categories.
func (h *Handler) DownloadCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queries.ListDownloadCategories(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list categories")
		return
	}
	WriteSuccess(w, "", categories, nil)
}

// DownloadFileTypes handles GET /downloads/file-types.
func (h *Handler) DownloadFileTypes(w http.ResponseWriter, r *http.Request) {
	fileTypes, err := h.queries.ListDownloadFileTypes(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list file types")
		return
	}
	WriteSuccess(w, "", fileTypes, nil)
}
