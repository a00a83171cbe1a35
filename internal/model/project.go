// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Project lifecycle states.
const (
	ProjectStatusPlanning   = "planning"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusOnHold     = "on_hold"
)

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusOnHold:
		return true
	}
	return false
}

// Project is a portfolio entry.
type Project struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	Description     string     `json:"description"`
	FullDescription *string    `json:"full_description,omitempty"`
	Client          *string    `json:"client,omitempty"`
	Category        string     `json:"category"`
	Technologies    []string   `json:"technologies"`
	ProjectURL      *string    `json:"project_url,omitempty"`
	RepositoryURL   *string    `json:"repository_url,omitempty"`
	Gallery         []string   `json:"gallery"`
	FeaturedImage   *string    `json:"featured_image,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Status          string     `json:"status"`
	IsFeatured      bool       `json:"is_featured"`
	IsPublished     bool       `json:"is_published"`
	ViewsCount      int64      `json:"views_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
