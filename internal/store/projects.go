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

const projectColumns = `id, title, slug, description, full_description, client, category,
	technologies, project_url, repository_url, gallery, featured_image, start_date, end_date,
	status, is_featured, is_published, views_count, created_at, updated_at`

func scanProject(row rowScanner) (model.Project, error) {
	var p model.Project
	var fullDesc, client, projectURL, repoURL, featuredImage sql.NullString
	var startDate, endDate sql.NullTime
	var technologies, gallery string
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &fullDesc, &client, &p.Category,
		&technologies, &projectURL, &repoURL, &gallery, &featuredImage, &startDate, &endDate,
		&p.Status, &p.IsFeatured, &p.IsPublished, &p.ViewsCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return model.Project{}, err
	}
	p.FullDescription = strPtr(fullDesc)
	p.Client = strPtr(client)
	p.ProjectURL = strPtr(projectURL)
	p.RepositoryURL = strPtr(repoURL)
	p.FeaturedImage = strPtr(featuredImage)
	p.StartDate = timePtr(startDate)
	p.EndDate = timePtr(endDate)
	p.Technologies = unmarshalList(technologies)
	p.Gallery = unmarshalList(gallery)
	return p, nil
}

// CreateProjectParams holds the fields for CreateProject.
type CreateProjectParams struct {
	Title           string
	Slug            string
	Description     string
	FullDescription *string
	Client          *string
	Category        string
	Technologies    []string
	ProjectURL      *string
	RepositoryURL   *string
	Gallery         []string
	FeaturedImage   *string
	StartDate       *time.Time
	EndDate         *time.Time
	Status          string
	IsFeatured      bool
	IsPublished     bool
}

// CreateProject inserts a project and returns the stored record.
func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (model.Project, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO projects (title, slug, description, full_description, client, category,
			technologies, project_url, repository_url, gallery, featured_image, start_date,
			end_date, status, is_featured, is_published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Title, arg.Slug, arg.Description, nullStr(arg.FullDescription), nullStr(arg.Client),
		arg.Category, marshalList(arg.Technologies), nullStr(arg.ProjectURL),
		nullStr(arg.RepositoryURL), marshalList(arg.Gallery), nullStr(arg.FeaturedImage),
		nullTime(arg.StartDate), nullTime(arg.EndDate), arg.Status, arg.IsFeatured,
		arg.IsPublished, now, now,
	)
	if err != nil {
		return model.Project{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Project{}, err
	}
	return q.GetProjectByID(ctx, id)
}

// GetProjectByID returns a project by primary key.
func (q *Queries) GetProjectByID(ctx context.Context, id int64) (model.Project, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// GetProjectBySlug returns a project by slug.
func (q *Queries) GetProjectBySlug(ctx context.Context, slug string) (model.Project, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE slug = ?`, slug)
	return scanProject(row)
}

// UpdateProjectParams holds the fields for UpdateProject.
type UpdateProjectParams struct {
	ID              int64
	Title           string
	Slug            string
	Description     string
	FullDescription *string
	Client          *string
	Category        string
	Technologies    []string
	ProjectURL      *string
	RepositoryURL   *string
	Gallery         []string
	FeaturedImage   *string
	StartDate       *time.Time
	EndDate         *time.Time
	Status          string
	IsFeatured      bool
	IsPublished     bool
}

// UpdateProject rewrites a project and returns the stored record.
func (q *Queries) UpdateProject(ctx context.Context, arg UpdateProjectParams) (model.Project, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, slug = ?, description = ?, full_description = ?,
			client = ?, category = ?, technologies = ?, project_url = ?, repository_url = ?,
			gallery = ?, featured_image = ?, start_date = ?, end_date = ?, status = ?,
			is_featured = ?, is_published = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Slug, arg.Description, nullStr(arg.FullDescription), nullStr(arg.Client),
		arg.Category, marshalList(arg.Technologies), nullStr(arg.ProjectURL),
		nullStr(arg.RepositoryURL), marshalList(arg.Gallery), nullStr(arg.FeaturedImage),
		nullTime(arg.StartDate), nullTime(arg.EndDate), arg.Status, arg.IsFeatured,
		arg.IsPublished, time.Now().UTC(), arg.ID,
	)
	if err != nil {
		return model.Project{}, err
	}
	return q.GetProjectByID(ctx, arg.ID)
}

// DeleteProject removes a project.
func (q *Queries) DeleteProject(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return err
}

// DeleteProjects removes several projects at once.
func (q *Queries) DeleteProjects(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id IN (`+inPlaceholders(len(ids))+`)`, int64Args(ids)...)
	return err
}

// IncrementProjectViews bumps the view counter.
func (q *Queries) IncrementProjectViews(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE projects SET views_count = views_count + 1 WHERE id = ?`, id)
	return err
}

// SetProjectPublished flips the published flag.
func (q *Queries) SetProjectPublished(ctx context.Context, id int64, published bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE projects SET is_published = ?, updated_at = ? WHERE id = ?`,
		published, time.Now().UTC(), id)
	return err
}

// SetProjectFeatured flips the featured flag.
func (q *Queries) SetProjectFeatured(ctx context.Context, id int64, featured bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE projects SET is_featured = ?, updated_at = ? WHERE id = ?`,
		featured, time.Now().UTC(), id)
	return err
}

// SetProjectsPublished flips the published flag for several projects.
func (q *Queries) SetProjectsPublished(ctx context.Context, ids []int64, published bool) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{published, time.Now().UTC()}, int64Args(ids)...)
	_, err := q.db.ExecContext(ctx,
		`UPDATE projects SET is_published = ?, updated_at = ? WHERE id IN (`+inPlaceholders(len(ids))+`)`,
		args...)
	return err
}

// SetProjectsFeatured flips the featured flag for several projects.
func (q *Queries) SetProjectsFeatured(ctx context.Context, ids []int64, featured bool) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{featured, time.Now().UTC()}, int64Args(ids)...)
	_, err := q.db.ExecContext(ctx,
		`UPDATE projects SET is_featured = ?, updated_at = ? WHERE id IN (`+inPlaceholders(len(ids))+`)`,
		args...)
	return err
}

// CountProjectSlug counts projects with the slug, excluding one id (0 for none).
func (q *Queries) CountProjectSlug(ctx context.Context, slug string, excludeID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&count)
	return count, err
}

// CountProjectTitle counts projects with the title, excluding one id (0 for none).
func (q *Queries) CountProjectTitle(ctx context.Context, title string, excludeID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE title = ? AND id != ?`, title, excludeID).Scan(&count)
	return count, err
}

// ProjectFilter narrows and orders ListProjects / CountProjects.
type ProjectFilter struct {
	Search    string
	Category  string
	Status    string
	Featured  *bool
	Published *bool
	SortBy    string
	SortDir   string
	Limit     int
	Offset    int
}

var projectSortColumns = map[string]string{
	"created_at":  "created_at",
	"start_date":  "start_date",
	"title":       "title",
	"views_count": "views_count",
}

func projectFilterWhere(f ProjectFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conds = append(conds, "(title LIKE ? OR description LIKE ? OR full_description LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Featured != nil {
		conds = append(conds, "is_featured = ?")
		args = append(args, *f.Featured)
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

// ListProjects returns a page of projects matching the filter.
func (q *Queries) ListProjects(ctx context.Context, f ProjectFilter) ([]model.Project, error) {
	where, args := projectFilterWhere(f)
	order := sortClause(projectSortColumns, f.SortBy, f.SortDir, "created_at DESC")
	args = append(args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects`+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CountProjects returns the number of projects matching the filter.
func (q *Queries) CountProjects(ctx context.Context, f ProjectFilter) (int64, error) {
	where, args := projectFilterWhere(f)
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&count)
	return count, err
}

// ProjectTotals aggregates counters for the project dashboard.
type ProjectTotals struct {
	Total      int64      `json:"total"`
	Published  int64      `json:"published"`
	Featured   int64      `json:"featured"`
	TotalViews int64      `json:"total_views"`
	ByStatus   []CountRow `json:"by_status"`
}

// GetProjectTotals collects project counters.
func (q *Queries) GetProjectTotals(ctx context.Context) (ProjectTotals, error) {
	var t ProjectTotals
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_published = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_featured = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(views_count), 0)
		FROM projects`).
		Scan(&t.Total, &t.Published, &t.Featured, &t.TotalViews)
	if err != nil {
		return t, err
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM projects GROUP BY status ORDER BY status`)
	if err != nil {
		return t, err
	}
	defer rows.Close()

	for rows.Next() {
		var r CountRow
		if err := rows.Scan(&r.Name, &r.Count); err != nil {
			return t, err
		}
		t.ByStatus = append(t.ByStatus, r)
	}
	return t, rows.Err()
}

// ListProjectCategories returns distinct categories with usage counts.
func (q *Queries) ListProjectCategories(ctx context.Context) ([]CountRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM projects
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

// ListProjectTechnologyBlobs returns every technologies column value for
// aggregation in Go.
func (q *Queries) ListProjectTechnologyBlobs(ctx context.Context) ([][]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT technologies FROM projects WHERE technologies != '[]'`)
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
