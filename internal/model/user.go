// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application.
package model

import "time"

// User represents an account that can authenticate against the API.
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"` // Never expose hash in JSON
	Avatar          *string    `json:"avatar,omitempty"`
	Bio             *string    `json:"bio,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	Website         *string    `json:"website,omitempty"`
	Location        *string    `json:"location,omitempty"`
	IsActive        bool       `json:"is_active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Roles holds the role names assigned to the user. Populated by the
	// store when the user is loaded with roles.
	Roles []string `json:"roles,omitempty"`
}

// AuthToken is a persisted bearer token. The plaintext token is shown to
// the client once; only its SHA-256 digest is stored.
type AuthToken struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Token names issued by the auth endpoints.
const (
	TokenNameAuth     = "auth_token"
	TokenNameRemember = "remember_token"
)
