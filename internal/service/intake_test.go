// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/folio-api/internal/geoip"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/store"
	"github.com/olegiv/folio-api/internal/testutil"
)

func newTestIntake(t *testing.T) (*Intake, *store.Queries, func()) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	geo, err := geoip.NewLookup("")
	require.NoError(t, err)
	return NewIntake(db, geo, testutil.TestLogger()), store.New(db), cleanup
}

func submission(email, ip string) Submission {
	return Submission{
		Name:      "Visitor",
		Email:     email,
		Subject:   "Inquiry",
		Message:   "I would like to talk about a project.",
		IPAddress: ip,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		Referrer:  "https://example.com/contact",
	}
}

func seedContacts(t *testing.T, queries *store.Queries, n int, email, ip string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := queries.CreateContact(ctx, store.CreateContactParams{
			Name:      "Visitor",
			Email:     email,
			Subject:   fmt.Sprintf("Earlier %d", i),
			Message:   "Earlier message",
			Status:    model.ContactStatusNew,
			IPAddress: &ip,
		})
		require.NoError(t, err)
	}
}

func TestSubmitStoresCleanSubmission(t *testing.T) {
	intake, _, cleanup := newTestIntake(t)
	defer cleanup()

	contact, err := intake.Submit(context.Background(), submission("a@example.com", "203.0.113.5"))
	require.NoError(t, err)

	assert.Equal(t, model.ContactStatusNew, contact.Status)
	assert.Equal(t, "a@example.com", contact.Email)
	require.NotNil(t, contact.IPAddress)
	assert.Equal(t, "203.0.113.5", *contact.IPAddress)
	assert.Equal(t, "https://example.com/contact", contact.Metadata["referrer"])
	assert.Contains(t, contact.Metadata["browser"], "Chrome")
}

func TestSubmitSanitizesMarkup(t *testing.T) {
	intake, _, cleanup := newTestIntake(t)
	defer cleanup()

	sub := submission("b@example.com", "203.0.113.6")
	sub.Name = `<b>Visitor</b>`
	sub.Message = `<script>alert(1)</script>Plain text question`

	contact, err := intake.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "Visitor", contact.Name)
	assert.NotContains(t, contact.Message, "<script>")
	assert.Contains(t, contact.Message, "Plain text question")
}

func TestSubmitThrottlesByIP(t *testing.T) {
	intake, queries, cleanup := newTestIntake(t)
	defer cleanup()

	ip := "198.51.100.9"
	seedContacts(t, queries, 3, "other@example.com", ip)

	_, err := intake.Submit(context.Background(), submission("fresh@example.com", ip))
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Contains(t, rl.Message, "address")

	// Nothing new was persisted
	count, err := queries.CountContacts(context.Background(), store.ContactFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSubmitThrottlesByEmail(t *testing.T) {
	intake, queries, cleanup := newTestIntake(t)
	defer cleanup()

	// Five earlier submissions from one email, spread over distinct IPs
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		ip := fmt.Sprintf("203.0.113.%d", 50+i)
		seedContacts(t, queries, 1, "busy@example.com", ip)
	}

	_, err := intake.Submit(ctx, submission("busy@example.com", "203.0.113.99"))
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Contains(t, rl.Message, "email")
}

func TestSubmitAtBoundaryStaysNew(t *testing.T) {
	intake, queries, cleanup := newTestIntake(t)
	defer cleanup()

	// Two prior submissions: pre-check sees 2 < 3 and passes, the
	// post-create count is exactly 3 which does not exceed the strict
	// threshold, so the submission stays new.
	ip := "198.51.100.20"
	seedContacts(t, queries, 2, "other@example.com", ip)

	contact, err := intake.Submit(context.Background(), submission("edge@example.com", ip))
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusNew, contact.Status)
}

func TestSubmitFlagsKeywordSpam(t *testing.T) {
	intake, _, cleanup := newTestIntake(t)
	defer cleanup()

	sub := submission("spam@example.com", "203.0.113.77")
	sub.Message = "You are our lucky WINNER, click here for your prize"

	contact, err := intake.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusSpam, contact.Status)
}

func TestSubmitWithoutIPSkipsIPChecks(t *testing.T) {
	intake, _, cleanup := newTestIntake(t)
	defer cleanup()

	sub := submission("noip@example.com", "")
	contact, err := intake.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Nil(t, contact.IPAddress)
	assert.Equal(t, model.ContactStatusNew, contact.Status)
}
