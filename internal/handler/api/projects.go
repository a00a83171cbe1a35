// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/service"
	"github.com/olegiv/folio-api/internal/store"
)

// ProjectResponse is a project with its rendered description.
type ProjectResponse struct {
	model.Project
	FullDescriptionHTML string `json:"full_description_html,omitempty"`
}

func (h *Handler) projectToResponse(p model.Project) ProjectResponse {
	resp := ProjectResponse{Project: p}
	if p.FullDescription != nil {
		html, err := service.RenderMarkdown(*p.FullDescription)
		if err == nil {
			resp.FullDescriptionHTML = html
		}
	}
	return resp
}

func (h *Handler) projectsToResponses(projects []model.Project) []ProjectResponse {
	responses := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		responses = append(responses, h.projectToResponse(p))
	}
	return responses
}

// CreateProjectRequest is the request body for POST /projects.
type CreateProjectRequest struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	FullDescription *string  `json:"full_description,omitempty"`
	Client          *string  `json:"client,omitempty"`
	Category        string   `json:"category"`
	Technologies    []string `json:"technologies,omitempty"`
	ProjectURL      *string  `json:"project_url,omitempty"`
	RepositoryURL   *string  `json:"repository_url,omitempty"`
	Gallery         []string `json:"gallery,omitempty"`
	FeaturedImage   *string  `json:"featured_image,omitempty"`
	StartDate       *string  `json:"start_date,omitempty"`
	EndDate         *string  `json:"end_date,omitempty"`
	Status          string   `json:"status"`
	IsFeatured      bool     `json:"is_featured"`
	IsPublished     bool     `json:"is_published"`
}

func (h *Handler) parseProjectCreate(w http.ResponseWriter, r *http.Request) (*CreateProjectRequest, bool) {
	if !isMultipart(r) {
		var req CreateProjectRequest
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
	req := CreateProjectRequest{
		Title:       r.FormValue("title"),
		Slug:        r.FormValue("slug"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Status:      r.FormValue("status"),
		IsFeatured:  r.FormValue("is_featured") == "true",
		IsPublished: r.FormValue("is_published") == "true",
	}
	strField := func(name string, dst **string) {
		if v := r.FormValue(name); v != "" {
			*dst = &v
		}
	}
	strField("full_description", &req.FullDescription)
	strField("client", &req.Client)
	strField("project_url", &req.ProjectURL)
	strField("repository_url", &req.RepositoryURL)
	strField("start_date", &req.StartDate)
	strField("end_date", &req.EndDate)
	if v := r.FormValue("technologies"); v != "" {
		for _, tech := range strings.Split(v, ",") {
			if tech = strings.TrimSpace(tech); tech != "" {
				req.Technologies = append(req.Technologies, tech)
			}
		}
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer func() { _ = file.Close() }()
		stored, saveErr := h.storage.SaveUpload("projects", file, header)
		if saveErr != nil {
			WriteValidationError(w, map[string]string{"image": saveErr.Error()})
			return nil, false
		}
		url := uploadsURL(stored.Path)
		req.FeaturedImage = &url
	}
	return &req, true
}

// ListProjects handles GET /projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, perPage, offset := parsePagination(r)
	q := r.URL.Query()

	filter := store.ProjectFilter{
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		Status:    q.Get("status"),
		Featured:  parseBoolQuery(r, "featured"),
		Published: parseBoolQuery(r, "published"),
		SortBy:    q.Get("sort_by"),
		SortDir:   q.Get("sort_dir"),
		Limit:     perPage,
		Offset:    offset,
	}
	if filter.Status != "" && !model.ValidProjectStatus(filter.Status) {
		WriteValidationError(w, map[string]string{"status": "Unknown status: " + filter.Status})
		return
	}

	projects, err := h.queries.ListProjects(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list projects")
		return
	}
	total, err := h.queries.CountProjects(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list projects")
		return
	}

	WriteSuccess(w, "", h.projectsToResponses(projects), pageMeta(total, page, perPage))
}

// CreateProject handles POST /projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.parseProjectCreate(w, r)
	if !ok {
		return
	}

	fieldErrors := make(map[string]string)
	if strings.TrimSpace(req.Title) == "" {
		fieldErrors["title"] = "Title is required"
	}
	if strings.TrimSpace(req.Description) == "" {
		fieldErrors["description"] = "Description is required"
	}
	if strings.TrimSpace(req.Category) == "" {
		fieldErrors["category"] = "Category is required"
	}
	if req.Status == "" {
		req.Status = model.ProjectStatusPlanning
	} else if !model.ValidProjectStatus(req.Status) {
		fieldErrors["status"] = "Unknown status: " + req.Status
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
		return h.queries.CountProjectTitle(ctx, req.Title, 0)
	}) {
		return
	}
	if !checkUnique(w, "slug", "Slug already exists", func() (int64, error) {
		return h.queries.CountProjectSlug(ctx, slug, 0)
	}) {
		return
	}

	params := store.CreateProjectParams{
		Title:           strings.TrimSpace(req.Title),
		Slug:            slug,
		Description:     req.Description,
		FullDescription: req.FullDescription,
		Client:          req.Client,
		Category:        strings.TrimSpace(req.Category),
		Technologies:    req.Technologies,
		ProjectURL:      req.ProjectURL,
		RepositoryURL:   req.RepositoryURL,
		Gallery:         req.Gallery,
		FeaturedImage:   req.FeaturedImage,
		Status:          req.Status,
		IsFeatured:      req.IsFeatured,
		IsPublished:     req.IsPublished,
	}
	if req.StartDate != nil && *req.StartDate != "" {
		t, dateOK := parseDateField(w, "start_date", *req.StartDate)
		if !dateOK {
			return
		}
		params.StartDate = t
	}
	if req.EndDate != nil && *req.EndDate != "" {
		t, dateOK := parseDateField(w, "end_date", *req.EndDate)
		if !dateOK {
			return
		}
		params.EndDate = t
	}

	project, err := h.queries.CreateProject(ctx, params)
	if err != nil {
		h.logger.Error("creating project", "error", err)
		WriteInternalError(w, "Failed to create project")
		return
	}

	WriteCreated(w, "Project created", h.projectToResponse(project))
}

// GetProject handles GET /projects/{idOrSlug}. The view counter moves
// only for published projects.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	project, ok := fetchByIDOrSlug(w, r, "project",
		func(id int64) (model.Project, error) { return h.queries.GetProjectByID(ctx, id) },
		func(slug string) (model.Project, error) { return h.queries.GetProjectBySlug(ctx, slug) })
	if !ok {
		return
	}

	if project.IsPublished {
		if err := h.queries.IncrementProjectViews(ctx, project.ID); err == nil {
			project.ViewsCount++
		}
	}

	WriteSuccess(w, "", h.projectToResponse(project), nil)
}

// UpdateProjectRequest is the request body for PUT /projects/{id}.
type UpdateProjectRequest struct {
	Title           *string   `json:"title,omitempty"`
	Slug            *string   `json:"slug,omitempty"`
	Description     *string   `json:"description,omitempty"`
	FullDescription *string   `json:"full_description,omitempty"`
	Client          *string   `json:"client,omitempty"`
	Category        *string   `json:"category,omitempty"`
	Technologies    *[]string `json:"technologies,omitempty"`
	ProjectURL      *string   `json:"project_url,omitempty"`
	RepositoryURL   *string   `json:"repository_url,omitempty"`
	Gallery         *[]string `json:"gallery,omitempty"`
	FeaturedImage   *string   `json:"featured_image,omitempty"`
	StartDate       *string   `json:"start_date,omitempty"`
	EndDate         *string   `json:"end_date,omitempty"`
	Status          *string   `json:"status,omitempty"`
	IsFeatured      *bool     `json:"is_featured,omitempty"`
	IsPublished     *bool     `json:"is_published,omitempty"`
}

// UpdateProject handles PUT /projects/{id}.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	existing, ok := requireEntityByID(w, r, "project", func(id int64) (model.Project, error) {
		return h.queries.GetProjectByID(ctx, id)
	})
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return
	}

	params := store.UpdateProjectParams{
		ID:              existing.ID,
		Title:           existing.Title,
		Slug:            existing.Slug,
		Description:     existing.Description,
		FullDescription: existing.FullDescription,
		Client:          existing.Client,
		Category:        existing.Category,
		Technologies:    existing.Technologies,
		ProjectURL:      existing.ProjectURL,
		RepositoryURL:   existing.RepositoryURL,
		Gallery:         existing.Gallery,
		FeaturedImage:   existing.FeaturedImage,
		StartDate:       existing.StartDate,
		EndDate:         existing.EndDate,
		Status:          existing.Status,
		IsFeatured:      existing.IsFeatured,
		IsPublished:     existing.IsPublished,
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			WriteValidationError(w, map[string]string{"title": "Title is required"})
			return
		}
		if !checkUnique(w, "title", "Title already exists", func() (int64, error) {
			return h.queries.CountProjectTitle(ctx, *req.Title, existing.ID)
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
			return h.queries.CountProjectSlug(ctx, slug, existing.ID)
		}) {
			return
		}
		params.Slug = slug
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			WriteValidationError(w, map[string]string{"description": "Description is required"})
			return
		}
		params.Description = *req.Description
	}
	if req.FullDescription != nil {
		params.FullDescription = req.FullDescription
	}
	if req.Client != nil {
		params.Client = req.Client
	}
	if req.Category != nil {
		if strings.TrimSpace(*req.Category) == "" {
			WriteValidationError(w, map[string]string{"category": "Category is required"})
			return
		}
		params.Category = strings.TrimSpace(*req.Category)
	}
	if req.Technologies != nil {
		params.Technologies = *req.Technologies
	}
	if req.ProjectURL != nil {
		params.ProjectURL = req.ProjectURL
	}
	if req.RepositoryURL != nil {
		params.RepositoryURL = req.RepositoryURL
	}
	if req.Gallery != nil {
		params.Gallery = *req.Gallery
	}
	if req.FeaturedImage != nil {
		if existing.FeaturedImage != nil {
			if rel := uploadsPath(*existing.FeaturedImage); rel != "" {
				_ = h.storage.Delete(rel)
			}
		}
		params.FeaturedImage = req.FeaturedImage
	}
	if req.StartDate != nil {
		if *req.StartDate == "" {
			params.StartDate = nil
		} else {
			t, dateOK := parseDateField(w, "start_date", *req.StartDate)
			if !dateOK {
				return
			}
			params.StartDate = t
		}
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			params.EndDate = nil
		} else {
			t, dateOK := parseDateField(w, "end_date", *req.EndDate)
			if !dateOK {
				return
			}
			params.EndDate = t
		}
	}
	if req.Status != nil {
		if !model.ValidProjectStatus(*req.Status) {
			WriteValidationError(w, map[string]string{"status": "Unknown status: " + *req.Status})
			return
		}
		params.Status = *req.Status
	}
	if req.IsFeatured != nil {
		params.IsFeatured = *req.IsFeatured
	}
	if req.IsPublished != nil {
		params.IsPublished = *req.IsPublished
	}

	project, err := h.queries.UpdateProject(ctx, params)
	if err != nil {
		h.logger.Error("updating project", "error", err, "project_id", existing.ID)
		WriteInternalError(w, "Failed to update project")
		return
	}

	WriteSuccess(w, "Project updated", h.projectToResponse(project), nil)
}

// DeleteProject handles DELETE /projects/{id}.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	project, ok := requireEntityByID(w, r, "project", func(id int64) (model.Project, error) {
		return h.queries.GetProjectByID(ctx, id)
	})
	if !ok {
		return
	}

	if project.FeaturedImage != nil {
		if rel := uploadsPath(*project.FeaturedImage); rel != "" {
			_ = h.storage.Delete(rel)
		}
	}
	for _, image := range project.Gallery {
		if rel := uploadsPath(image); rel != "" {
			_ = h.storage.Delete(rel)
		}
	}
	if err := h.queries.DeleteProject(ctx, project.ID); err != nil {
		WriteInternalError(w, "Failed to delete project")
		return
	}

	WriteSuccess(w, "Project deleted", nil, nil)
}

// ToggleProjectPublished handles POST /projects/{id}/toggle-published.
func (h *Handler) ToggleProjectPublished(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	project, ok := requireEntityByID(w, r, "project", func(id int64) (model.Project, error) {
		return h.queries.GetProjectByID(ctx, id)
	})
	if !ok {
		return
	}

	if err := h.queries.SetProjectPublished(ctx, project.ID, !project.IsPublished); err != nil {
		WriteInternalError(w, "Failed to update project")
		return
	}
	project, err := h.queries.GetProjectByID(ctx, project.ID)
	if err != nil {
		WriteInternalError(w, "Failed to update project")
		return
	}

	message := "Project unpublished"
	if project.IsPublished {
		message = "Project published"
	}
	WriteSuccess(w, message, h.projectToResponse(project), nil)
}

// ToggleProjectFeatured handles POST /projects/{id}/toggle-featured.
func (h *Handler) ToggleProjectFeatured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	project, ok := requireEntityByID(w, r, "project", func(id int64) (model.Project, error) {
		return h.queries.GetProjectByID(ctx, id)
	})
	if !ok {
		return
	}

	if err := h.queries.SetProjectFeatured(ctx, project.ID, !project.IsFeatured); err != nil {
		WriteInternalError(w, "Failed to update project")
		return
	}
	project, err := h.queries.GetProjectByID(ctx, project.ID)
	if err != nil {
		WriteInternalError(w, "Failed to update project")
		return
	}

	message := "Project unfeatured"
	if project.IsFeatured {
		message = "Project featured"
	}
	WriteSuccess(w, message, h.projectToResponse(project), nil)
}

// BulkProjects handles POST /projects/bulk.
func (h *Handler) BulkProjects(w http.ResponseWriter, r *http.Request) {
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
		if !requireActionPermission(w, r, model.PermPublishProjects) {
			return
		}
		err = h.queries.SetProjectsPublished(ctx, req.IDs, true)
	case model.BulkActionUnpublish:
		if !requireActionPermission(w, r, model.PermPublishProjects) {
			return
		}
		err = h.queries.SetProjectsPublished(ctx, req.IDs, false)
	case model.BulkActionFeature:
		err = h.queries.SetProjectsFeatured(ctx, req.IDs, true)
	case model.BulkActionUnfeature:
		err = h.queries.SetProjectsFeatured(ctx, req.IDs, false)
	case model.BulkActionDelete:
		if !requireActionPermission(w, r, model.PermDeleteProjects) {
			return
		}
		err = h.queries.DeleteProjects(ctx, req.IDs)
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

// ProjectStats handles GET /projects/stats.
func (h *Handler) ProjectStats(w http.ResponseWriter, r *http.Request) {
	totals, err := h.queries.GetProjectTotals(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to load project stats")
		return
	}
	WriteSuccess(w, "", totals, nil)
}

// ProjectCategories handles GET /projects/categories.
func (h *Handler) ProjectCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queries.ListProjectCategories(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list categories")
		return
	}
	WriteSuccess(w, "", categories, nil)
}

// ProjectTechnologies handles GET /projects/technologies: flattens the
// per-project technology arrays into usage counts.
func (h *Handler) ProjectTechnologies(w http.ResponseWriter, r *http.Request) {
	blobs, err := h.queries.ListProjectTechnologyBlobs(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list technologies")
		return
	}
	WriteSuccess(w, "", countStrings(blobs), nil)
}
