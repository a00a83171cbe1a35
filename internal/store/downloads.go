// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/olegiv/folio-api/internal/model"
)

const downloadColumns = `id, title, slug, description, file_name, file_path, file_url, file_size,
	file_type, mime_type, category, tags, author, version, is_featured, is_published,
	requires_registration, download_count, created_at, updated_at`

func scanDownload(row rowScanner) (model.Download, error) {
	var d model.Download
	var description, fileURL, author, version sql.NullString
	var tags string
	err := row.Scan(
		&d.ID, &d.Title, &d.Slug, &description, &d.FileName, &d.FilePath, &fileURL, &d.FileSize,
		&d.FileType, &d.MimeType, &d.Category, &tags, &author, &version,
		&d.IsFeatured, &d.IsPublished, &d.RequiresRegistration, &d.DownloadCount,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return model.Download{}, err
	}
	d.Description = strPtr(description)
	d.FileURL = strPtr(fileURL)
	d.Author = strPtr(author)
	d.Version = strPtr(version)
	d.Tags = unmarshalList(tags)
	return d, nil
}

// CreateDownloadParams holds the fields for CreateDownload.
type CreateDownloadParams struct {
	Title                string
	Slug                 string
	Description          *string
	FileName             string
	FilePath             string
	FileURL              *string
	FileSize             int64
	FileType             string
	MimeType             string
	Category             string
	Tags                 []string
	Author               *string
	Version              *string
	IsFeatured           bool
	IsPublished          bool
	RequiresRegistration bool
}

// CreateDownload inserts a download and returns the stored record.
func (q *Queries) CreateDownload(ctx context.Context, arg CreateDownloadParams) (model.Download, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO downloads (title, slug, description, file_name, file_path, file_url,
			file_size, file_type, mime_type, category, tags, author, version, is_featured,
			is_published, requires_registration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Title, arg.Slug, nullStr(arg.Description), arg.FileName, arg.FilePath,
		nullStr(arg.FileURL), arg.FileSize, arg.FileType, arg.MimeType, arg.Category,
		marshalList(arg.Tags), nullStr(arg.Author), nullStr(arg.Version), arg.IsFeatured,
		arg.IsPublished, arg.RequiresRegistration, now, now,
	)
	if err != nil {
		return model.Download{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Download{}, err
	}
	return q.GetDownloadByID(ctx, id)
}

// GetDownloadByID returns a download by primary key.
func (q *Queries) GetDownloadByID(ctx context.Context, id int64) (model.Download, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+downloadColumns+` FROM downloads WHERE id = ?`, id)
	return scanDownload(row)
}

// GetDownloadBySlug returns a download by slug.
func (q *Queries) GetDownloadBySlug(ctx context.Context, slug string) (model.Download, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+downloadColumns+` FROM downloads WHERE slug = ?`, slug)
	return scanDownload(row)
}

// UpdateDownloadParams holds the fields for UpdateDownload.
type UpdateDownloadParams struct {
	ID                   int64
	Title                string
	Slug                 string
	Description          *string
	FileName             string
	FilePath             string
	FileURL              *string
	FileSize             int64
	FileType             string
	MimeType             string
	Category             string
	Tags                 []string
	Author               *string
	Version              *string
	IsFeatured           bool
	IsPublished          bool
	RequiresRegistration bool
}

// UpdateDownload rewrites a download and returns the stored record.
func (q *Queries) UpdateDownload(ctx context.Context, arg UpdateDownloadParams) (model.Download, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE downloads SET title = ?, slug = ?, description = ?, file_name = ?, file_path = ?,
			file_url = ?, file_size = ?, file_type = ?, mime_type = ?, category = ?, tags = ?,
			author = ?, version = ?, is_featured = ?, is_published = ?, requires_registration = ?,
			updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Slug, nullStr(arg.Description), arg.FileName, arg.FilePath,
		nullStr(arg.FileURL), arg.FileSize, arg.FileType, arg.MimeType, arg.Category,
		marshalList(arg.Tags), nullStr(arg.Author), nullStr(arg.Version), arg.IsFeatured,
		arg.IsPublished, arg.RequiresRegistration, time.Now().UTC(), arg.ID,
	)
	if err != nil {
		return model.Download{}, err
	}
	return q.GetDownloadByID(ctx, arg.ID)
}

// DeleteDownload removes a download.
func (q *Queries) DeleteDownload(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM downloads WHERE id = ?`, id)
	return err
}

// DeleteDownloads removes several downloads at once.
func (q *Queries) DeleteDownloads(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM downloads WHERE id IN (`+inPlaceholders(len(ids))+`)`, int64Args(ids)...)
	return err
}

// IncrementDownloadCount bumps the download counter.
func (q *Queries) IncrementDownloadCount(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE downloads SET download_count = download_count + 1 WHERE id = ?`, id)
	return err
}

// SetDownloadPublished flips the published flag.
func (q *Queries) SetDownloadPublished(ctx context.Context, id int64, published bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE downloads SET is_published = ?, updated_at = ? WHERE id = ?`,
		published, time.Now().UTC(), id)
	return err
}

// SetDownloadFeatured flips the featured flag.
func (q *Queries) SetDownloadFeatured(ctx context.Context, id int64, featured bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE downloads SET is_featured = ?, updated_at = ? WHERE id = ?`,
		featured, time.Now().UTC(), id)
	return err
}

// SetDownloadsPublished flips the published flag for several downloads.
func (q *Queries) SetDownloadsPublished(ctx context.Context, ids []int64, published bool) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{published, time.Now().UTC()}, int64Args(ids)...)
	_, err := q.db.ExecContext(ctx,
		`UPDATE downloads SET is_published = ?, updated_at = ? WHERE id IN (`+inPlaceholders(len(ids))+`)`,
		args...)
	return err
}

// SetDownloadsFeatured flips the featured flag for several downloads.
func (q *Queries) SetDownloadsFeatured(ctx context.Context, ids []int64, featured bool) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{featured, time.Now().UTC()}, int64Args(ids)...)
	_, err := q.db.ExecContext(ctx,
		`UPDATE downloads SET is_featured = ?, updated_at = ? WHERE id IN (`+inPlaceholders(len(ids))+`)`,
		args...)
	return err
}

// CountDownloadSlug counts downloads with the slug, excluding one id (0 for none).
func (q *Queries) CountDownloadSlug(ctx context.Context, slug string, excludeID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM downloads WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&count)
	return count, err
}

// CountDownloadTitle counts downloads with the title, excluding one id (0 for none).
func (q *Queries) CountDownloadTitle(ctx context.Context, title string, excludeID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM downloads WHERE title = ? AND id != ?`, title, excludeID).Scan(&count)
	return count, err
}

// DownloadFilter narrows and orders ListDownloads / CountDownloads.
type DownloadFilter struct {
	Search               string
	Category             string
	FileType             string
	Author               string
	Featured             *bool
	Published            *bool
	RequiresRegistration *bool
	SortBy               string
	SortDir              string
	Limit                int
	Offset               int
}

var downloadSortColumns = map[string]string{
	"created_at":     "created_at",
	"title":          "title",
	"download_count": "download_count",
	"file_size":      "file_size",
}

func downloadFilterWhere(f DownloadFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conds = append(conds, "(title LIKE ? OR description LIKE ? OR file_name LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.FileType != "" {
		conds = append(conds, "file_type = ?")
		args = append(args, f.FileType)
	}
	if f.Author != "" {
		conds = append(conds, "author = ?")
		args = append(args, f.Author)
	}
	if f.Featured != nil {
		conds = append(conds, "is_featured = ?")
		args = append(args, *f.Featured)
	}
	if f.Published != nil {
		conds = append(conds, "is_published = ?")
		args = append(args, *f.Published)
	}
	if f.RequiresRegistration != nil {
		conds = append(conds, "requires_registration = ?")
		args = append(args, *f.RequiresRegistration)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListDownloads returns a page of downloads matching the filter.
func (q *Queries) ListDownloads(ctx context.Context, f DownloadFilter) ([]model.Download, error) {
	where, args := downloadFilterWhere(f)
	order := sortClause(downloadSortColumns, f.SortBy, f.SortDir, "created_at DESC")
	args = append(args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+downloadColumns+` FROM downloads`+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []model.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

// CountDownloads returns the number of downloads matching the filter.
func (q *Queries) CountDownloads(ctx context.Context, f DownloadFilter) (int64, error) {
	where, args := downloadFilterWhere(f)
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downloads`+where, args...).Scan(&count)
	return count, err
}

// DownloadTotals aggregates counters for the download dashboard.
type DownloadTotals struct {
	Total          int64      `json:"total"`
	Published      int64      `json:"published"`
	Featured       int64      `json:"featured"`
	TotalDownloads int64      `json:"total_downloads"`
	TotalFileSize  int64      `json:"total_file_size"`
	ByCategory     []CountRow `json:"by_category"`
	ByFileType     []CountRow `json:"by_file_type"`
}

// GetDownloadTotals collects download counters.
func (q *Queries) GetDownloadTotals(ctx context.Context) (DownloadTotals, error) {
	var t DownloadTotals
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_published = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_featured = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(download_count), 0),
			COALESCE(SUM(file_size), 0)
		FROM downloads`).
		Scan(&t.Total, &t.Published, &t.Featured, &t.TotalDownloads, &t.TotalFileSize)
	if err != nil {
		return t, err
	}

	t.ByCategory, err = q.ListDownloadCategories(ctx)
	if err != nil {
		return t, err
	}
	t.ByFileType, err = q.ListDownloadFileTypes(ctx)
	return t, err
}

// TopDownloads returns the most downloaded files.
func (q *Queries) TopDownloads(ctx context.Context, limit int) ([]model.Download, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+downloadColumns+` FROM downloads ORDER BY download_count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []model.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

// ListDownloadCategories returns distinct categories with usage counts.
func (q *Queries) ListDownloadCategories(ctx context.Context) ([]CountRow, error) {
	return q.countGroup(ctx, `
		SELECT category, COUNT(*) FROM downloads
		GROUP BY category ORDER BY COUNT(*) DESC, category`)
}

// ListDownloadFileTypes returns distinct file types with usage counts.
func (q *Queries) ListDownloadFileTypes(ctx context.Context) ([]CountRow, error) {
	return q.countGroup(ctx, `
		SELECT file_type, COUNT(*) FROM downloads
		WHERE file_type != ''
		GROUP BY file_type ORDER BY COUNT(*) DESC, file_type`)
}

// countGroup runs a two-column name/count aggregation query.
func (q *Queries) countGroup(ctx context.Context, query string, args ...any) ([]CountRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CountRow
	for rows.Next() {
		var r CountRow
		if err := rows.Scan(&r.Name, &r.Count); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
