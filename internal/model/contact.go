// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// Contact submission states.
const (
	ContactStatusNew      = "new"
	ContactStatusRead     = "read"
	ContactStatusReplied  = "replied"
	ContactStatusArchived = "archived"
	ContactStatusSpam     = "spam"
)

// ContactStatuses returns every valid submission state.
func ContactStatuses() []string {
	return []string{
		ContactStatusNew, ContactStatusRead, ContactStatusReplied,
		ContactStatusArchived, ContactStatusSpam,
	}
}

// ValidContactStatus reports whether s is a known submission state.
func ValidContactStatus(s string) bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusReplied,
		ContactStatusArchived, ContactStatusSpam:
		return true
	}
	return false
}

// MaxContactMessageLength caps the message body on intake.
const MaxContactMessageLength = 5000

// spamKeywords are matched case-insensitively as substrings of the
// message body during the post-create spam check.
var spamKeywords = []string{
	"viagra", "casino", "lottery", "winner", "prize", "click here", "free money",
}

// ContainsSpamKeyword reports whether the message trips the keyword filter.
func ContainsSpamKeyword(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range spamKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Contact is a contact-form submission.
type Contact struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     *string           `json:"phone,omitempty"`
	Company   *string           `json:"company,omitempty"`
	Subject   string            `json:"subject"`
	Message   string            `json:"message"`
	Status    string            `json:"status"`
	IPAddress *string           `json:"ip_address,omitempty"`
	UserAgent *string           `json:"user_agent,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	RepliedAt *time.Time        `json:"replied_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Contact bulk action verbs.
const (
	ContactBulkMarkRead    = "mark_read"
	ContactBulkMarkReplied = "mark_replied"
	ContactBulkArchive     = "archive"
	ContactBulkMarkSpam    = "mark_spam"
	ContactBulkDelete      = "delete"
)
