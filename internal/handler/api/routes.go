// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio-api/internal/config"
	"github.com/olegiv/folio-api/internal/geoip"
	"github.com/olegiv/folio-api/internal/middleware"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/service"
)

// Routes builds the REST router. The caller mounts it under /api/v1.
func Routes(db *sql.DB, cfg *config.Config, geo *geoip.Lookup, logger *slog.Logger) http.Handler {
	storage := service.NewStorage(cfg.UploadsDir)
	intake := service.NewIntake(db, geo, logger)
	h := NewHandler(db, storage, intake, logger)

	publicLimiter := middleware.NewPublicRateLimiter(cfg.PublicRateLimit, cfg.PublicRateBurst)

	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public, unauthenticated surface.
	r.Group(func(r chi.Router) {
		r.Use(publicLimiter.Middleware())

		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/contact", h.SubmitContact)

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuthenticate(db))
			r.Get("/downloads/{idOrSlug}/download", h.ServeDownloadFile)
		})
	})

	// Everything below requires a bearer token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(db))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", h.Me)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/logout", h.Logout)
			r.Post("/logout-all", h.LogoutAll)
			r.Post("/refresh", h.Refresh)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermViewPosts))
				r.Get("/", h.ListPosts)
				r.Get("/stats", h.PostStats)
				r.Get("/categories", h.PostCategories)
				r.Get("/tags", h.PostTags)
				r.Get("/{idOrSlug}", h.GetPost)
			})
			r.With(middleware.RequirePermission(model.PermCreatePosts)).
				Post("/", h.CreatePost)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermEditPosts))
				r.Put("/{id}", h.UpdatePost)
				r.Post("/bulk", h.BulkPosts)
			})
			r.With(middleware.RequirePermission(model.PermPublishPosts)).
				Post("/{id}/toggle-published", h.TogglePostPublished)
			r.With(middleware.RequirePermission(model.PermDeletePosts)).
				Delete("/{id}", h.DeletePost)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermViewProjects))
				r.Get("/", h.ListProjects)
				r.Get("/stats", h.ProjectStats)
				r.Get("/categories", h.ProjectCategories)
				r.Get("/technologies", h.ProjectTechnologies)
				r.Get("/{idOrSlug}", h.GetProject)
			})
			r.With(middleware.RequirePermission(model.PermCreateProjects)).
				Post("/", h.CreateProject)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermEditProjects))
				r.Put("/{id}", h.UpdateProject)
				r.Post("/{id}/toggle-featured", h.ToggleProjectFeatured)
				r.Post("/bulk", h.BulkProjects)
			})
			r.With(middleware.RequirePermission(model.PermPublishProjects)).
				Post("/{id}/toggle-published", h.ToggleProjectPublished)
			r.With(middleware.RequirePermission(model.PermDeleteProjects)).
				Delete("/{id}", h.DeleteProject)
		})

		r.Route("/downloads", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermViewDownloads))
				r.Get("/", h.ListDownloads)
				r.Get("/stats", h.DownloadStats)
				r.Get("/categories", h.DownloadCategories)
				r.Get("/file-types", h.DownloadFileTypes)
				r.Get("/{idOrSlug}", h.GetDownload)
			})
			r.With(middleware.RequirePermission(model.PermCreateDownloads)).
				Post("/", h.CreateDownload)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermEditDownloads))
				r.Put("/{id}", h.UpdateDownload)
				r.Post("/{id}/toggle-featured", h.ToggleDownloadFeatured)
				r.Post("/bulk", h.BulkDownloads)
			})
			r.With(middleware.RequirePermission(model.PermPublishDownloads)).
				Post("/{id}/toggle-published", h.ToggleDownloadPublished)
			r.With(middleware.RequirePermission(model.PermDeleteDownloads)).
				Delete("/{id}", h.DeleteDownload)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermViewContacts))
				r.Get("/", h.ListContacts)
				r.Get("/stats", h.ContactStats)
				r.Get("/export", h.ExportContacts)
				r.Get("/{id}", h.GetContact)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermManageContacts))
				r.Put("/{id}", h.UpdateContact)
				r.Post("/bulk", h.BulkContacts)
			})
			r.With(middleware.RequirePermission(model.PermDeleteContacts)).
				Delete("/{id}", h.DeleteContact)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/roles", h.ListRoles)
			r.Get("/stats", h.UserStats)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
			r.Post("/{id}/toggle-status", h.ToggleUserStatus)
		})
	})

	return r
}
