// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"time"

	"github.com/olegiv/folio-api/internal/util"
)

// Download is a published file with access gating.
type Download struct {
	ID                   int64     `json:"id"`
	Title                string    `json:"title"`
	Slug                 string    `json:"slug"`
	Description          *string   `json:"description,omitempty"`
	FileName             string    `json:"file_name"`
	FilePath             string    `json:"-"` // Server-side storage path
	FileURL              *string   `json:"file_url,omitempty"`
	FileSize             int64     `json:"file_size"`
	FileType             string    `json:"file_type"`
	MimeType             string    `json:"mime_type"`
	Category             string    `json:"category"`
	Tags                 []string  `json:"tags"`
	Author               *string   `json:"author,omitempty"`
	Version              *string   `json:"version,omitempty"`
	IsFeatured           bool      `json:"is_featured"`
	IsPublished          bool      `json:"is_published"`
	RequiresRegistration bool      `json:"requires_registration"`
	DownloadCount        int64     `json:"download_count"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// FormattedFileSize renders the file size for display.
func (d *Download) FormattedFileSize() string {
	return util.FormatBytes(d.FileSize)
}
