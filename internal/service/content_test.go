// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Title\n\nSome *emphasis* here.")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.Contains(html, "<h1>") || !strings.Contains(html, "<em>emphasis</em>") {
		t.Errorf("unexpected render output: %s", html)
	}
}

func TestStripTags(t *testing.T) {
	got := StripTags(`<p>Hello <script>alert(1)</script><b>world</b></p>`)
	if strings.Contains(got, "<") {
		t.Errorf("StripTags left markup: %q", got)
	}
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "world") {
		t.Errorf("StripTags dropped text: %q", got)
	}
}

func TestExcerpt(t *testing.T) {
	short := Excerpt("A short body.", 150)
	if short != "A short body." {
		t.Errorf("Excerpt short = %q", short)
	}

	long := strings.Repeat("word ", 100)
	got := Excerpt(long, 150)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Excerpt long missing ellipsis: %q", got)
	}
	if len([]rune(got)) > 153 {
		t.Errorf("Excerpt too long: %d runes", len([]rune(got)))
	}

	if got := Excerpt("<p>Tagged <b>content</b></p>", 150); strings.Contains(got, "<") {
		t.Errorf("Excerpt left markup: %q", got)
	}
}

func TestReadingTime(t *testing.T) {
	if got := ReadingTime(""); got != 0 {
		t.Errorf("ReadingTime(empty) = %d, want 0", got)
	}
	if got := ReadingTime("just a few words"); got != 1 {
		t.Errorf("ReadingTime(short) = %d, want 1", got)
	}
	if got := ReadingTime(strings.Repeat("word ", 401)); got != 3 {
		t.Errorf("ReadingTime(401 words) = %d, want 3", got)
	}
}
