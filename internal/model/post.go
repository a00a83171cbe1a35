// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Post is a blog entry. Author is a free-text display name, not a user
// reference.
type Post struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     *string    `json:"excerpt,omitempty"`
	FullContent string     `json:"full_content"`
	Author      string     `json:"author"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Tags        []string   `json:"tags"`
	ImageURL    *string    `json:"image_url,omitempty"`
	IsPublished bool       `json:"is_published"`
	ViewsCount  int64      `json:"views_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Bulk action verbs shared by the content resources.
const (
	BulkActionPublish   = "publish"
	BulkActionUnpublish = "unpublish"
	BulkActionFeature   = "feature"
	BulkActionUnfeature = "unfeature"
	BulkActionDelete    = "delete"
)
