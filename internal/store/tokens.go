// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/folio-api/internal/model"
)

func scanAuthToken(row rowScanner) (model.AuthToken, error) {
	var t model.AuthToken
	var lastUsed sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &lastUsed, &t.CreatedAt)
	if err != nil {
		return model.AuthToken{}, err
	}
	t.LastUsedAt = timePtr(lastUsed)
	return t, nil
}

// CreateAuthToken persists a token digest for a user.
func (q *Queries) CreateAuthToken(ctx context.Context, userID int64, name, tokenHash string) (model.AuthToken, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (user_id, name, token_hash, created_at) VALUES (?, ?, ?, ?)`,
		userID, name, tokenHash, now)
	if err != nil {
		return model.AuthToken{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.AuthToken{}, err
	}
	return model.AuthToken{ID: id, UserID: userID, Name: name, TokenHash: tokenHash, CreatedAt: now}, nil
}

// GetAuthTokenByHash looks up a token by its SHA-256 digest.
func (q *Queries) GetAuthTokenByHash(ctx context.Context, tokenHash string) (model.AuthToken, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, token_hash, last_used_at, created_at
		FROM auth_tokens WHERE token_hash = ?`, tokenHash)
	return scanAuthToken(row)
}

// UpdateAuthTokenLastUsed stamps a token's last use.
func (q *Queries) UpdateAuthTokenLastUsed(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE auth_tokens SET last_used_at = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}

// DeleteAuthToken revokes a single token.
func (q *Queries) DeleteAuthToken(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE id = ?`, id)
	return err
}

// DeleteUserAuthTokens revokes every token a user holds.
func (q *Queries) DeleteUserAuthTokens(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE user_id = ?`, userID)
	return err
}
