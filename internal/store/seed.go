// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/folio-api/internal/auth"
	"github.com/olegiv/folio-api/internal/model"
)

// SeedConfig carries the initial account credentials.
type SeedConfig struct {
	AdminEmail     string
	AdminPassword  string
	EditorEmail    string
	EditorPassword string
}

// Seed creates the initial admin and editor accounts if they are missing.
// Safe to run on every startup.
func Seed(ctx context.Context, db *sql.DB, cfg SeedConfig) error {
	queries := New(db)

	if err := seedUser(ctx, queries, cfg.AdminEmail, cfg.AdminPassword, "Admin User", model.RoleAdmin); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	if cfg.EditorEmail != "" {
		if err := seedUser(ctx, queries, cfg.EditorEmail, cfg.EditorPassword, "Editor User", model.RoleEditor); err != nil {
			return fmt.Errorf("seeding editor: %w", err)
		}
	}
	return nil
}

func seedUser(ctx context.Context, queries *Queries, email, password, name string, role model.Role) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := queries.GetUserByEmail(ctx, email)
	if err == nil {
		return nil // Already seeded
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Name:            name,
		Email:           email,
		PasswordHash:    hash,
		IsActive:        true,
		EmailVerifiedAt: &now,
	})
	if err != nil {
		return err
	}

	if err := queries.ReplaceUserRoles(ctx, user.ID, []string{string(role)}); err != nil {
		return err
	}

	slog.Info("seeded user", "email", email, "role", role)
	return nil
}
