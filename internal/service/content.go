// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements application services: content rendering,
// file storage and the contact intake pipeline.
package service

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	markdown     = goldmark.New()
)

// wordsPerMinute is the average reading speed used for reading time.
const wordsPerMinute = 200

// RenderMarkdown converts a markdown body to HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StripTags removes all HTML markup from a string.
func StripTags(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// Excerpt derives a short plain-text summary from a content body,
// truncated to limit runes with a trailing ellipsis.
func Excerpt(content string, limit int) string {
	plain := strings.Join(strings.Fields(StripTags(content)), " ")
	runes := []rune(plain)
	if len(runes) <= limit {
		return plain
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// ReadingTime estimates reading time in minutes for a content body,
// rounding up.
func ReadingTime(content string) int {
	words := len(strings.Fields(StripTags(content)))
	return (words + wordsPerMinute - 1) / wordsPerMinute
}
