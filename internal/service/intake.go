// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/folio-api/internal/geoip"
	"github.com/olegiv/folio-api/internal/model"
	"github.com/olegiv/folio-api/internal/store"
)

// Intake thresholds. The pre-checks reject at >= because the submission
// has not been written yet; the post-create spam check uses strict >
// since the counts then include the new row.
const (
	maxSubmissionsPerIPHour   = 3
	maxSubmissionsPerEmailDay = 5
)

// RateLimitError signals that a submission was rejected by the intake
// throttle.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string { return e.Message }

// Submission is a validated contact-form payload plus request context.
type Submission struct {
	Name           string
	Email          string
	Phone          *string
	Company        *string
	Subject        string
	Message        string
	IPAddress      string
	UserAgent      string
	Referrer       string
	AcceptLanguage string
}

// Intake runs the contact submission pipeline: throttle checks,
// persistence and spam classification.
type Intake struct {
	queries *store.Queries
	geo     *geoip.Lookup
	logger  *slog.Logger
}

// NewIntake creates the intake service. geo may be a disabled lookup.
func NewIntake(db *sql.DB, geo *geoip.Lookup, logger *slog.Logger) *Intake {
	return &Intake{
		queries: store.New(db),
		geo:     geo,
		logger:  logger,
	}
}

// Submit runs a submission through the pipeline and returns the stored
// record. A *RateLimitError is returned when a throttle trips; flagged
// spam is stored and returned without error.
func (s *Intake) Submit(ctx context.Context, sub Submission) (model.Contact, error) {
	now := time.Now().UTC()
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	if sub.IPAddress != "" {
		fromIP, err := s.queries.CountContactsFromIPSince(ctx, sub.IPAddress, hourAgo)
		if err != nil {
			return model.Contact{}, fmt.Errorf("counting submissions by ip: %w", err)
		}
		if fromIP >= maxSubmissionsPerIPHour {
			return model.Contact{}, &RateLimitError{
				Message: "Too many submissions from your address. Please try again later.",
			}
		}
	}

	fromEmail, err := s.queries.CountContactsFromEmailSince(ctx, sub.Email, dayAgo)
	if err != nil {
		return model.Contact{}, fmt.Errorf("counting submissions by email: %w", err)
	}
	if fromEmail >= maxSubmissionsPerEmailDay {
		return model.Contact{}, &RateLimitError{
			Message: "Too many submissions for this email address. Please try again tomorrow.",
		}
	}

	params := store.CreateContactParams{
		Name:     StripTags(sub.Name),
		Email:    sub.Email,
		Subject:  StripTags(sub.Subject),
		Message:  StripTags(sub.Message),
		Status:   model.ContactStatusNew,
		Metadata: s.buildMetadata(sub),
	}
	if sub.Phone != nil {
		phone := StripTags(*sub.Phone)
		params.Phone = &phone
	}
	if sub.Company != nil {
		company := StripTags(*sub.Company)
		params.Company = &company
	}
	if sub.IPAddress != "" {
		params.IPAddress = &sub.IPAddress
	}
	if sub.UserAgent != "" {
		params.UserAgent = &sub.UserAgent
	}

	contact, err := s.queries.CreateContact(ctx, params)
	if err != nil {
		return model.Contact{}, fmt.Errorf("creating submission: %w", err)
	}

	if spam, reason := s.checkSpam(ctx, contact, hourAgo, dayAgo); spam {
		updated, err := s.queries.UpdateContactStatus(ctx, store.UpdateContactStatusParams{
			ID:     contact.ID,
			Status: model.ContactStatusSpam,
		})
		if err != nil {
			return model.Contact{}, fmt.Errorf("flagging submission: %w", err)
		}
		s.logger.Warn("contact submission flagged as spam",
			"id", contact.ID, "reason", reason, "ip", sub.IPAddress)
		return updated, nil
	}

	return contact, nil
}

// checkSpam re-runs the volume counts (now including the new row, hence
// strict comparisons) and the keyword filter.
func (s *Intake) checkSpam(ctx context.Context, contact model.Contact, hourAgo, dayAgo time.Time) (bool, string) {
	if contact.IPAddress != nil {
		fromIP, err := s.queries.CountContactsFromIPSince(ctx, *contact.IPAddress, hourAgo)
		if err == nil && fromIP > maxSubmissionsPerIPHour {
			return true, "ip_volume"
		}
	}

	fromEmail, err := s.queries.CountContactsFromEmailSince(ctx, contact.Email, dayAgo)
	if err == nil && fromEmail > maxSubmissionsPerEmailDay {
		return true, "email_volume"
	}

	if model.ContainsSpamKeyword(contact.Message) {
		return true, "keyword"
	}
	return false, ""
}

func (s *Intake) buildMetadata(sub Submission) map[string]string {
	meta := make(map[string]string)
	if sub.Referrer != "" {
		meta["referrer"] = sub.Referrer
	}
	if sub.AcceptLanguage != "" {
		meta["accept_language"] = sub.AcceptLanguage
	}
	if sub.UserAgent != "" {
		ua := useragent.Parse(sub.UserAgent)
		if ua.Name != "" {
			meta["browser"] = ua.Name + " " + ua.Version
		}
		if ua.OS != "" {
			meta["os"] = ua.OS
		}
	}
	if sub.IPAddress != "" && s.geo != nil {
		if country := s.geo.LookupCountry(sub.IPAddress); country != "" {
			meta["country"] = country
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
