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

const postColumns = `id, title, slug, excerpt, full_content, author, publish_date, category,
	tags, image_url, is_published, views_count, created_at, updated_at`

func scanPost(row rowScanner) (model.Post, error) {
	var p model.Post
	var excerpt, category, imageURL sql.NullString
	var publishDate sql.NullTime
	var tags string
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &excerpt, &p.FullContent, &p.Author,
		&publishDate, &category, &tags, &imageURL,
		&p.IsPublished, &p.ViewsCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return model.Post{}, err
	}
	p.Excerpt = strPtr(excerpt)
	p.PublishDate = timePtr(publishDate)
	p.Category = strPtr(category)
	p.ImageURL = strPtr(imageURL)
	p.Tags = unmarshalList(tags)
	return p, nil
}

// CreatePostParams holds the fields for CreatePost.
type CreatePostParams struct {
	Title       string
	Slug        string
	Excerpt     *string
	FullContent string
	Author      string
	PublishDate *time.Time
	Category    *string
	Tags        []string
	ImageURL    *string
	IsPublished bool
}

// CreatePost inserts a post and returns the stored record.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (model.Post, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO posts (title, slug, excerpt, full_content, author, publish_date, category,
			tags, image_url, is_published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Title, arg.Slug, nullStr(arg.Excerpt), arg.FullContent, arg.Author,
		nullTime(arg.PublishDate), nullStr(arg.Category), marshalList(arg.Tags),
		nullStr(arg.ImageURL), arg.IsPublished, now, now,
	)
	if err != nil {
		return model.Post{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Post{}, err
	}
	return q.GetPostByID(ctx, id)
}

// GetPostByID returns a post by primary key.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// GetPostBySlug returns a post by slug.
func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	return scanPost(row)
}

// UpdatePostParams holds the fields for UpdatePost.
type UpdatePostParams struct {
	ID          int64
	Title       string
	Slug        string
	Excerpt     *string
	FullContent string
	Author      string
	PublishDate *time.Time
	Category    *string
	Tags        []string
	ImageURL    *string
	IsPublished bool
}

// UpdatePost rewrites a post and returns the stored record.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (model.Post, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, slug = ?, excerpt = ?, full_content = ?, author = ?,
			publish_date = ?, category = ?, tags = ?, image_url = ?, is_published = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Slug, nullStr(arg.Excerpt), arg.FullContent, arg.Author,
		nullTime(arg.PublishDate), nullStr(arg.Category), marshalList(arg.Tags),
		nullStr(arg.ImageURL), arg.IsPublished, time.Now().UTC(), arg.ID,
	)
	if err != nil {
		return model.Post{}, err
	}
	return q.GetPostByID(ctx, arg.ID)
}

// DeletePost removes a post.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}

// DeletePosts removes several posts at once.
func (q *Queries) DeletePosts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id IN (`+inPlaceholders(len(ids))+`)`, int64Args(ids)...)
	return err
}

// IncrementPostViews bumps the view counter.
func (q *Queries) IncrementPostViews(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE posts SET views_count = views_count + 1 WHERE id = ?`, id)
	return err
}

// SetPostPublished flips the published flag.
func (q *Queries) SetPostPublished(ctx context.Context, id int64, published bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE posts SET is_published = ?, updated_at = ? WHERE id = ?`,
		published, time.Now().UTC(), id)
	return err
}

// SetPostsPublished flips the published flag for several posts.
func (q *Queries) SetPostsPublished(ctx context.Context, ids []int64, published bool) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{published, time.Now().UTC()}, int64Args(ids)...)
	_, err := q.db.ExecContext(ctx,
		`UPDATE posts SET is_published = ?, updated_at = ? WHERE id IN (`+inPlaceholders(len(ids))+`)`,
		args...)
	return err
}

// CountPostSlug counts posts with the slug, excluding one id (0 for none).
func (q *Queries) CountPostSlug(ctx context.Context, slug string, excludeID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&count)
	return count, err
}

// CountPostTitle counts posts with the title, excluding one id (0 for none).
func (q *Queries) CountPostTitle(ctx context.Context, title string, excludeID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE title = ? AND id != ?`, title, excludeID).Scan(&count)
	return count, err
}

// PostFilter narrows and orders ListPosts / CountPosts.
type PostFilter struct {
	Search    string
	Category  string
	Author    string
	Published *bool
	SortBy    string
	SortDir   string
	Limit     int
	Offset    int
}

var postSortColumns = map[string]string{
	"created_at":   "created_at",
	"publish_date": "publish_date",
	"title":        "title",
	"views_count":  "views_count",
}

func postFilterWhere(f PostFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conds = append(conds, "(title LIKE ? OR excerpt LIKE ? OR full_content LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Author != "" {
		conds = append(conds, "author = ?")
		args = append(args, f.Author)
	}
	if f.Published != nil {
		conds = append(conds, "is_published = ?")
		args = append(args, *f.Published)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListPosts returns a page of posts matching the filter.
func (q *Queries) ListPosts(ctx context.Context, f PostFilter) ([]model.Post, error) {
	where, args := postFilterWhere(f)
	order := sortClause(postSortColumns, f.SortBy, f.SortDir, "created_at DESC")
	args = append(args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts`+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountPosts returns the number of posts matching the filter.
func (q *Queries) CountPosts(ctx context.Context, f PostFilter) (int64, error) {
	where, args := postFilterWhere(f)
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&count)
	return count, err
}

// PostTotals aggregates counters for the post dashboard.
type PostTotals struct {
	Total      int64 `json:"total"`
	Published  int64 `json:"published"`
	Drafts     int64 `json:"drafts"`
	TotalViews int64 `json:"total_views"`
}

// GetPostTotals collects post counters in one pass.
func (q *Queries) GetPostTotals(ctx context.Context) (PostTotals, error) {
	var t PostTotals
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_published = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_published = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(views_count), 0)
		FROM posts`).
		Scan(&t.Total, &t.Published, &t.Drafts, &t.TotalViews)
	return t, err
}

// TopPostsByViews returns the most viewed posts.
func (q *Queries) TopPostsByViews(ctx context.Context, limit int) ([]model.Post, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY views_count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPostCategories returns distinct categories with usage counts.
func (q *Queries) ListPostCategories(ctx context.Context) ([]CountRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM posts
		WHERE category IS NOT NULL AND category != ''
		GROUP BY category ORDER BY COUNT(*) DESC, category`)
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

// ListPostContents returns every post body for aggregation in Go
// (average reading time).
func (q *Queries) ListPostContents(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT full_content FROM posts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		result = append(result, content)
	}
	return result, rows.Err()
}

// ListPostTagBlobs returns the raw tags column of every post for
// aggregation in Go. Tags live in JSON arrays, so counting happens
// outside SQL.
func (q *Queries) ListPostTagBlobs(ctx context.Context) ([][]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT tags FROM posts WHERE tags != '[]'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		result = append(result, unmarshalList(blob))
	}
	return result, rows.Err()
}
