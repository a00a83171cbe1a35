// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/folio-api/internal/model"
)

const userColumns = `id, name, email, password_hash, avatar, bio, phone, website, location,
	is_active, email_verified_at, last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var avatar, bio, phone, website, location sql.NullString
	var verifiedAt, lastLoginAt sql.NullTime
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&avatar, &bio, &phone, &website, &location,
		&u.IsActive, &verifiedAt, &lastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	u.Avatar = strPtr(avatar)
	u.Bio = strPtr(bio)
	u.Phone = strPtr(phone)
	u.Website = strPtr(website)
	u.Location = strPtr(location)
	u.EmailVerifiedAt = timePtr(verifiedAt)
	u.LastLoginAt = timePtr(lastLoginAt)
	return u, nil
}

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Name            string
	Email           string
	PasswordHash    string
	Avatar          *string
	Bio             *string
	Phone           *string
	Website         *string
	Location        *string
	IsActive        bool
	EmailVerifiedAt *time.Time
}

// CreateUser inserts a user and returns the stored record.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, avatar, bio, phone, website, location,
			is_active, email_verified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Email, arg.PasswordHash,
		nullStr(arg.Avatar), nullStr(arg.Bio), nullStr(arg.Phone), nullStr(arg.Website), nullStr(arg.Location),
		arg.IsActive, nullTime(arg.EmailVerifiedAt), now, now,
	)
	if err != nil {
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return q.GetUserByID(ctx, id)
}

// GetUserByID returns a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail returns a user by email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// UpdateUserParams holds the fields for UpdateUser.
type UpdateUserParams struct {
	ID       int64
	Name     string
	Email    string
	Avatar   *string
	Bio      *string
	Phone    *string
	Website  *string
	Location *string
}

// UpdateUser rewrites a user's profile fields.
func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (model.User, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, avatar = ?, bio = ?, phone = ?, website = ?,
			location = ?, updated_at = ?
		WHERE id = ?`,
		arg.Name, arg.Email, nullStr(arg.Avatar), nullStr(arg.Bio), nullStr(arg.Phone),
		nullStr(arg.Website), nullStr(arg.Location), time.Now().UTC(), arg.ID,
	)
	if err != nil {
		return model.User{}, err
	}
	return q.GetUserByID(ctx, arg.ID)
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	return err
}

// UpdateUserLastLogin stamps a user's last login time.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`, now, now, id)
	return err
}

// SetUserActive flips a user's active flag.
func (q *Queries) SetUserActive(ctx context.Context, id int64, active bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, time.Now().UTC(), id)
	return err
}

// DeleteUser removes a user. Roles and tokens cascade.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

// UserFilter narrows and orders ListUsers / CountUsers.
type UserFilter struct {
	Search  string
	Role    string
	Active  *bool
	SortBy  string
	SortDir string
	Limit   int
	Offset  int
}

var userSortColumns = map[string]string{
	"created_at":    "created_at",
	"name":          "name",
	"email":         "email",
	"last_login_at": "last_login_at",
}

func userFilterWhere(f UserFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conds = append(conds, "(name LIKE ? OR email LIKE ? OR bio LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Role != "" {
		conds = append(conds, "id IN (SELECT user_id FROM user_roles WHERE role = ?)")
		args = append(args, f.Role)
	}
	if f.Active != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *f.Active)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListUsers returns a page of users matching the filter.
func (q *Queries) ListUsers(ctx context.Context, f UserFilter) ([]model.User, error) {
	where, args := userFilterWhere(f)
	order := sortClause(userSortColumns, f.SortBy, f.SortDir, "created_at DESC")
	args = append(args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of users matching the filter.
func (q *Queries) CountUsers(ctx context.Context, f UserFilter) (int64, error) {
	where, args := userFilterWhere(f)
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&count)
	return count, err
}

// GetUserRoles returns the role names assigned to a user, sorted.
func (q *Queries) GetUserRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ReplaceUserRoles swaps a user's role set for the given one.
// Run inside a transaction via WithTx when paired with other writes.
func (q *Queries) ReplaceUserRoles(ctx context.Context, userID int64, roles []string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing roles: %w", err)
	}
	for _, role := range roles {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`, userID, role); err != nil {
			return fmt.Errorf("assigning role %q: %w", role, err)
		}
	}
	return nil
}

// CountUsersWithRole returns how many users hold the role.
func (q *Queries) CountUsersWithRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_roles WHERE role = ?`, role).Scan(&count)
	return count, err
}

// CountActiveUsersWithRole returns how many active users hold the role.
func (q *Queries) CountActiveUsersWithRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_roles ur
		JOIN users u ON u.id = ur.user_id
		WHERE ur.role = ? AND u.is_active = 1`, role).Scan(&count)
	return count, err
}

// UserStats aggregates counters for the user dashboard.
type UserStats struct {
	Total      int64      `json:"total"`
	Active     int64      `json:"active"`
	Inactive   int64      `json:"inactive"`
	Verified   int64      `json:"verified"`
	RecentDays int64      `json:"recent_registrations"`
	ByRole     []CountRow `json:"by_role"`
}

// GetUserStats collects user counters. recentSince bounds the recent
// registration window.
func (q *Queries) GetUserStats(ctx context.Context, recentSince time.Time) (UserStats, error) {
	var s UserStats
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_active = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN email_verified_at IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM users`, recentSince).
		Scan(&s.Total, &s.Active, &s.Inactive, &s.Verified, &s.RecentDays)
	if err != nil {
		return s, err
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT role, COUNT(*) FROM user_roles GROUP BY role ORDER BY role`)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	for rows.Next() {
		var r CountRow
		if err := rows.Scan(&r.Name, &r.Count); err != nil {
			return s, err
		}
		s.ByRole = append(s.ByRole, r)
	}
	return s, rows.Err()
}
