// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/service"
	"github.com/olegiv/folio-api/internal/store"
	"github.com/olegiv/folio-api/internal/util"
)

// postExcerptLength is the derived excerpt size in runes.
const postExcerptLength = 150

// PostResponse is a post with its derived fields.
type PostResponse struct {
	model.Post
	ReadingTime int    `json:"reading_time"`
	ContentHTML string `json:"content_html,omitempty"`
}

func (h *Handler) postToResponse(p model.Post) PostResponse {
	resp := PostResponse{
		Post:        p,
		ReadingTime: service.ReadingTime(p.FullContent),
	}
	html, err := service.RenderMarkdown(p.FullContent)
	if err == nil {
		resp.ContentHTML = html
	}
	return resp
}

func (h *Handler) postsToResponses(posts []model.Post) []PostResponse {
	responses := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, h.postToResponse(p))
	}
	return responses
}

// CreatePostRequest is the request body for POST /posts.
type CreatePostRequest struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Excerpt     *string  `json:"excerpt,omitempty"`
	FullContent string   `json:"full_content"`
	Author      string   `json:"author"`
	PublishDate *string  `json:"publish_date,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	IsPublished bool     `json:"is_published"`
}

// parsePostCreate reads a post payload from JSON or a multipart form
// with an optional "image" file.
func (h *Handler) parsePostCreate(w http.ResponseWriter, r *http.Request) (*CreatePostRequest, bool) {
	if !isMultipart(r) {
		var req CreatePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteBadRequest(w, "Invalid JSON body")
			return nil, false
		}
		return &req, true
	}

	if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
		WriteBadRequest(w, "Invalid multipart form")
		return nil, false
	}
	req := CreatePostRequest{
		Title:       r.FormValue("title"),
		Slug:        r.FormValue("slug"),
		FullContent: r.FormValue("full_content"),
		Author:      r.FormValue("author"),
		IsPublished: r.FormValue("is_published") == "true",
	}
	if v := r.FormValue("excerpt"); v != "" {
		req.Excerpt = &v
	}
	if v := r.FormValue("publish_date"); v != "" {
		req.PublishDate = &v
	}
	if v := r.FormValue("category"); v != "" {
		req.Category = &v
	}
	if v := r.FormValue("tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				req.Tags = append(req.Tags, tag)
			}
		}
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer func() { _ = file.Close() }()
		stored, saveErr := h.storage.SaveUpload("posts", file, header)
		if saveErr != nil {
			WriteValidationError(w, map[string]string{"image": saveErr.Error()})
			return nil, false
		}
		url := uploadsURL(stored.Path)
		req.ImageURL = &url
	}
	return &req, true
}

// resolveSlug derives a slug from the title when none is given, and
// validates an explicit one. Writes a 422 on bad format.
func resolveSlug(w http.ResponseWriter, title, slug string) (string, bool) {
	if slug == "" {
		slug = util.Slugify(title)
	} else if !util.IsValidSlug(slug) {
		WriteValidationError(w, map[string]string{
			"slug": "Slug may only contain lowercase letters, numbers and hyphens",
		})
		return "", false
	}
	if slug == "" {
		WriteValidationError(w, map[string]string{"slug": "Slug could not be derived from title"})
		return "", false
	}
	return slug, true
}

// parseDateField parses an RFC3339 or date-only value. Writes a 422 on
// bad format.
func parseDateField(w http.ResponseWriter, field, value string) (*time.Time, bool) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse("2006-01-02", value)
	}
	if err != nil {
		WriteValidationError(w, map[string]string{
			field: "Invalid date format. Use RFC3339 or YYYY-MM-DD",
		})
		return nil, false
	}
	t = t.UTC()
	return &t, true
}

// ListPosts handles GET /posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, perPage, offset := parsePagination(r)
	q := r.URL.Query()

	filter := store.PostFilter{
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		Author:    q.Get("author"),
		Published: parseBoolQuery(r, "published"),
		SortBy:    q.Get("sort_by"),
		SortDir:   q.Get("sort_dir"),
		Limit:     perPage,
		Offset:    offset,
	}

	posts, err := h.queries.ListPosts(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list posts")
		return
	}
	total, err := h.queries.CountPosts(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list posts")
		return
	}

	WriteSuccess(w, "", h.postsToResponses(posts), pageMeta(total, page, perPage))
}

// CreatePost handles POST /posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.parsePostCreate(w, r)
	if !ok {
		return
	}

	fieldErrors := make(map[string]string)
	if strings.TrimSpace(req.Title) == "" {
		fieldErrors["title"] = "Title is required"
	}
	if strings.TrimSpace(req.FullContent) == "" {
		fieldErrors["full_content"] = "Content is required"
	}
	if strings.TrimSpace(req.Author) == "" {
		fieldErrors["author"] = "Author is required"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	slug, ok := resolveSlug(w, req.Title, req.Slug)
	if !ok {
		return
	}
	if !checkUnique(w, "title", "Title already exists", func() (int64, error) {
		return h.queries.CountPostTitle(ctx, req.Title, 0)
	}) {
		return
	}
	if !checkUnique(w, "slug", "Slug already exists", func() (int64, error) {
		return h.queries.CountPostSlug(ctx, slug, 0)
	}) {
		return
	}

	params := store.CreatePostParams{
		Title:       strings.TrimSpace(req.Title),
		Slug:        slug,
		Excerpt:     req.Excerpt,
		FullContent: req.FullContent,
		Author:      strings.TrimSpace(req.Author),
		Category:    req.Category,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
		IsPublished: req.IsPublished,
	}
	if params.Excerpt == nil || *params.Excerpt == "" {
		excerpt := service.Excerpt(req.FullContent, postExcerptLength)
		params.Excerpt = &excerpt
	}
	if req.PublishDate != nil && *req.PublishDate != "" {
		t, dateOK := parseDateField(w, "publish_date", *req.PublishDate)
		if !dateOK {
			return
		}
		params.PublishDate = t
	}

	post, err := h.queries.CreatePost(ctx, params)
	if err != nil {
		h.logger.Error("creating post", "error", err)
		WriteInternalError(w, "Failed to create post")
		return
	}

	WriteCreated(w, "Post created", h.postToResponse(post))
}

// GetPost handles GET /posts/{idOrSlug}. The view counter moves only for
// published posts.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	post, ok := fetchByIDOrSlug(w, r, "post",
		func(id int64) (model.Post, error) { return h.queries.GetPostByID(ctx, id) },
		func(slug string) (model.Post, error) { return h.queries.GetPostBySlug(ctx, slug) })
	if !ok {
		return
	}

	if post.IsPublished {
		if err := h.queries.IncrementPostViews(ctx, post.ID); err == nil {
			post.ViewsCount++
		}
	}

	WriteSuccess(w, "", h.postToResponse(post), nil)
}

// UpdatePostRequest is the request body for PUT /posts/{id}.
type UpdatePostRequest struct {
	Title       *string   `json:"title,omitempty"`
	Slug        *string   `json:"slug,omitempty"`
	Excerpt     *string   `json:"excerpt,omitempty"`
	FullContent *string   `json:"full_content,omitempty"`
	Author      *string   `json:"author,omitempty"`
	PublishDate *string   `json:"publish_date,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	IsPublished *bool     `json:"is_published,omitempty"`
}

// UpdatePost handles PUT /posts/{id}.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	existing, ok := requireEntityByID(w, r, "post", func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(ctx, id)
	})
	if !ok {
		return
	}

	var req UpdatePostRequest
	var newImage *string
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
		req.Excerpt = formStr("excerpt")
		req.FullContent = formStr("full_content")
		req.Author = formStr("author")
		req.PublishDate = formStr("publish_date")
		req.Category = formStr("category")
		if v := formStr("is_published"); v != nil {
			b := *v == "true"
			req.IsPublished = &b
		}
		if v := formStr("tags"); v != nil {
			var tags []string
			for _, tag := range strings.Split(*v, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					tags = append(tags, tag)
				}
			}
			req.Tags = &tags
		}
		file, header, err := r.FormFile("image")
		if err == nil {
			defer func() { _ = file.Close() }()
			stored, saveErr := h.storage.SaveUpload("posts", file, header)
			if saveErr != nil {
				WriteValidationError(w, map[string]string{"image": saveErr.Error()})
				return
			}
			url := uploadsURL(stored.Path)
			newImage = &url
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteBadRequest(w, "Invalid JSON body")
			return
		}
		newImage = req.ImageURL
	}

	params := store.UpdatePostParams{
		ID:          existing.ID,
		Title:       existing.Title,
		Slug:        existing.Slug,
		Excerpt:     existing.Excerpt,
		FullContent: existing.FullContent,
		Author:      existing.Author,
		PublishDate: existing.PublishDate,
		Category:    existing.Category,
		Tags:        existing.Tags,
		ImageURL:    existing.ImageURL,
		IsPublished: existing.IsPublished,
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			WriteValidationError(w, map[string]string{"title": "Title is required"})
			return
		}
		if !checkUnique(w, "title", "Title already exists", func() (int64, error) {
			return h.queries.CountPostTitle(ctx, *req.Title, existing.ID)
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
			return h.queries.CountPostSlug(ctx, slug, existing.ID)
		}) {
			return
		}
		params.Slug = slug
	}
	if req.Excerpt != nil {
		params.Excerpt = req.Excerpt
	}
	if req.FullContent != nil {
		if strings.TrimSpace(*req.FullContent) == "" {
			WriteValidationError(w, map[string]string{"full_content": "Content is required"})
			return
		}
		params.FullContent = *req.FullContent
	}
	if req.Author != nil {
		params.Author = *req.Author
	}
	if req.PublishDate != nil {
		if *req.PublishDate == "" {
			params.PublishDate = nil
		} else {
			t, dateOK := parseDateField(w, "publish_date", *req.PublishDate)
			if !dateOK {
				return
			}
			params.PublishDate = t
		}
	}
	if req.Category != nil {
		params.Category = req.Category
	}
	if req.Tags != nil {
		params.Tags = *req.Tags
	}
	if newImage != nil {
		if existing.ImageURL != nil {
			if rel := uploadsPath(*existing.ImageURL); rel != "" {
				_ = h.storage.Delete(rel)
			}
		}
		params.ImageURL = newImage
	}
	if req.IsPublished != nil {
		params.IsPublished = *req.IsPublished
	}

	post, err := h.queries.UpdatePost(ctx, params)
	if err != nil {
		h.logger.Error("updating post", "error", err, "post_id", existing.ID)
		WriteInternalError(w, "Failed to update post")
		return
	}

	WriteSuccess(w, "Post updated", h.postToResponse(post), nil)
}

// DeletePost handles DELETE /posts/{id}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	post, ok := requireEntityByID(w, r, "post", func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(ctx, id)
	})
	if !ok {
		return
	}

	if post.ImageURL != nil {
		if rel := uploadsPath(*post.ImageURL); rel != "" {
			_ = h.storage.Delete(rel)
		}
	}
	if err := h.queries.DeletePost(ctx, post.ID); err != nil {
		WriteInternalError(w, "Failed to delete post")
		return
	}

	WriteSuccess(w, "Post deleted", nil, nil)
}

// TogglePostPublished handles POST /posts/{id}/toggle-published.
func (h *Handler) TogglePostPublished(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	post, ok := requireEntityByID(w, r, "post", func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(ctx, id)
	})
	if !ok {
		return
	}

	if err := h.queries.SetPostPublished(ctx, post.ID, !post.IsPublished); err != nil {
		WriteInternalError(w, "Failed to update post")
		return
	}
	post, err := h.queries.GetPostByID(ctx, post.ID)
	if err != nil {
		WriteInternalError(w, "Failed to update post")
		return
	}

	message := "Post unpublished"
	if post.IsPublished {
		message = "Post published"
	}
	WriteSuccess(w, message, h.postToResponse(post), nil)
}

// BulkRequest is the request body for bulk content actions.
type BulkRequest struct {
	Action string  `json:"action"`
	IDs    []int64 `json:"ids"`
}

// BulkPosts handles POST /posts/bulk.
func (h *Handler) BulkPosts(w http.ResponseWriter, r *http.Request) {
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
		if !requireActionPermission(w, r, model.PermPublishPosts) {
			return
		}
		err = h.queries.SetPostsPublished(ctx, req.IDs, true)
	case model.BulkActionUnpublish:
		if !requireActionPermission(w, r, model.PermPublishPosts) {
			return
		}
		err = h.queries.SetPostsPublished(ctx, req.IDs, false)
	case model.BulkActionDelete:
		if !requireActionPermission(w, r, model.PermDeletePosts) {
			return
		}
		err = h.queries.DeletePosts(ctx, req.IDs)
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

// PostStatsData is returned by GET /posts/stats.
type PostStatsData struct {
	store.PostTotals
	AvgReadingTime float64        `json:"avg_reading_time"`
	TopByViews     []PostResponse `json:"top_by_views"`
	Categories     int            `json:"categories"`
}

// PostStats handles GET /posts/stats.
func (h *Handler) PostStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totals, err := h.queries.GetPostTotals(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to load post stats")
		return
	}

	contents, err := h.queries.ListPostContents(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to load post stats")
		return
	}
	var avgReading float64
	if len(contents) > 0 {
		var sum int
		for _, content := range contents {
			sum += service.ReadingTime(content)
		}
		avgReading = float64(sum) / float64(len(contents))
	}

	top, err := h.queries.TopPostsByViews(ctx, 5)
	if err != nil {
		WriteInternalError(w, "Failed to load post stats")
		return
	}
	categories, err := h.queries.ListPostCategories(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to load post stats")
		return
	}

	WriteSuccess(w, "", PostStatsData{
		PostTotals:     totals,
		AvgReadingTime: avgReading,
		TopByViews:     h.postsToResponses(top),
		Categories:     len(categories),
	}, nil)
}

// PostCategories handles GET /posts/categories.
func (h *Handler) PostCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queries.ListPostCategories(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list categories")
		return
	}
	WriteSuccess(w, "", categories, nil)
}

// PostTags handles GET /posts/tags: flattens the per-post tag arrays into
// usage counts.
func (h *Handler) PostTags(w http.ResponseWriter, r *http.Request) {
	blobs, err := h.queries.ListPostTagBlobs(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list tags")
		return
	}
	WriteSuccess(w, "", countStrings(blobs), nil)
}

// countStrings flattens string lists into sorted usage counts.
func countStrings(blobs [][]string) []store.CountRow {
	counts := make(map[string]int64)
	for _, blob := range blobs {
		for _, s := range blob {
			counts[s]++
		}
	}
	result := make([]store.CountRow, 0, len(counts))
	for name, count := range counts {
		result = append(result, store.CountRow{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result
}
