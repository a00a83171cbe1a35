// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST handlers for the content backend.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio-api/internal/middleware"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/service"
	"github.com/olegiv/folio-api/internal/store"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db      *sql.DB
	queries *store.Queries
	storage *service.Storage
	intake  *service.Intake
	logger  *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(db *sql.DB, storage *service.Storage, intake *service.Intake, logger *slog.Logger) *Handler {
	return &Handler{
		db:      db,
		queries: store.New(db),
		storage: storage,
		intake:  intake,
		logger:  logger,
	}
}

// Response is the standard API response envelope.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Meta    any               `json:"meta,omitempty"`
}

// PageMeta carries pagination counters in list responses.
type PageMeta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteSuccess writes a 200 OK response.
func WriteSuccess(w http.ResponseWriter, message string, data any, meta any) {
	WriteJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created response.
func WriteCreated(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// WriteError writes an error response with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, Response{Success: false, Message: message})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, entityName string) {
	WriteError(w, http.StatusNotFound, capitalizeFirst(entityName)+" not found")
}

// WriteValidationError writes a 422 Unprocessable Entity response with
// field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteJSON(w, http.StatusUnprocessableEntity, Response{
		Success: false,
		Message: "Validation failed",
		Errors:  fieldErrors,
	})
}

// WriteTooManyRequests writes a 429 Too Many Requests response.
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// parsePagination reads page/per_page query parameters with sane bounds.
func parsePagination(r *http.Request) (page, perPage, offset int) {
	page = 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	perPage = 20
	if pp, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && pp > 0 {
		perPage = pp
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage, (page - 1) * perPage
}

// pageMeta builds pagination metadata from a total count.
func pageMeta(total int64, page, perPage int) PageMeta {
	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}
	return PageMeta{Total: total, Page: page, PerPage: perPage, Pages: pages}
}

// parseIDParam parses the {id} URL parameter as an int64.
func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// parseBoolQuery reads a true/false query parameter, nil when absent.
func parseBoolQuery(r *http.Request, name string) *bool {
	switch r.URL.Query().Get(name) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

// EntityFetcher is a function that fetches an entity by ID.
type EntityFetcher[T any] func(id int64) (T, error)

// requireEntityByID parses an ID from the URL and fetches the entity.
// Returns the entity and true, or the zero value and false after writing
// the error response.
func requireEntityByID[T any](w http.ResponseWriter, r *http.Request, entityName string, fetch EntityFetcher[T]) (T, bool) {
	var zero T

	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid "+entityName+" ID")
		return zero, false
	}

	entity, err := fetch(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, entityName)
		} else {
			WriteInternalError(w, "Failed to retrieve "+entityName)
		}
		return zero, false
	}
	return entity, true
}

// fetchByIDOrSlug resolves the {idOrSlug} URL parameter as a numeric id
// first, then as a slug.
func fetchByIDOrSlug[T any](w http.ResponseWriter, r *http.Request, entityName string,
	byID func(int64) (T, error), bySlug func(string) (T, error)) (T, bool) {
	var zero T

	param := chi.URLParam(r, "idOrSlug")
	if param == "" {
		WriteBadRequest(w, "Missing "+entityName+" identifier")
		return zero, false
	}

	var entity T
	var err error
	if id, parseErr := strconv.ParseInt(param, 10, 64); parseErr == nil {
		entity, err = byID(id)
	} else {
		entity, err = bySlug(param)
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, entityName)
		} else {
			WriteInternalError(w, "Failed to retrieve "+entityName)
		}
		return zero, false
	}
	return entity, true
}

// requireActionPermission enforces an elevated permission inside a
// handler whose route gate only covers the base edit permission. The
// bulk endpoints use it because their actions carry different
// privilege levels.
func requireActionPermission(w http.ResponseWriter, r *http.Request, perm model.Permission) bool {
	authUser := middleware.GetAuthUser(r)
	if authUser == nil || !authUser.HasPermission(perm) {
		WriteForbidden(w, "Missing permission: "+string(perm))
		return false
	}
	return true
}

// CountChecker counts conflicting rows for a uniqueness check.
type CountChecker func() (int64, error)

// checkUnique runs a uniqueness counter and writes a 422 on conflict.
// Returns true when the value is free to use.
func checkUnique(w http.ResponseWriter, field, message string, count CountChecker) bool {
	n, err := count()
	if err != nil {
		WriteInternalError(w, "Failed to check "+field)
		return false
	}
	if n != 0 {
		WriteValidationError(w, map[string]string{field: message})
		return false
	}
	return true
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validEmail reports whether s looks like an email address.
func validEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// capitalizeFirst returns s with the first letter capitalized.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// uploadsURL converts a storage-relative path to its public URL.
func uploadsURL(relPath string) string {
	return "/uploads/" + strings.TrimPrefix(relPath, "/")
}

// uploadsPath converts a public uploads URL back to a storage-relative
// path. Returns "" for external URLs.
func uploadsPath(url string) string {
	if strings.HasPrefix(url, "/uploads/") {
		return strings.TrimPrefix(url, "/uploads/")
	}
	return ""
}
