// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/olegiv/folio-api/internal/model"
)

const contactColumns = `id, name, email, phone, company, subject, message, status, ip_address,
	user_agent, metadata, read_at, replied_at, created_at, updated_at`

func marshalMetadata(m map[string]string) sql.NullString {
	if len(m) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func unmarshalMetadata(ns sql.NullString) map[string]string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil
	}
	return m
}

func scanContact(row rowScanner) (model.Contact, error) {
	var c model.Contact
	var phone, company, ipAddress, userAgent, metadata sql.NullString
	var readAt, repliedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &phone, &company, &c.Subject, &c.Message, &c.Status,
		&ipAddress, &userAgent, &metadata, &readAt, &repliedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return model.Contact{}, err
	}
	c.Phone = strPtr(phone)
	c.Company = strPtr(company)
	c.IPAddress = strPtr(ipAddress)
	c.UserAgent = strPtr(userAgent)
	c.Metadata = unmarshalMetadata(metadata)
	c.ReadAt = timePtr(readAt)
	c.RepliedAt = timePtr(repliedAt)
	return c, nil
}

// CreateContactParams holds the fields for CreateContact.
type CreateContactParams struct {
	Name      string
	Email     string
	Phone     *string
	Company   *string
	Subject   string
	Message   string
	Status    string
	IPAddress *string
	UserAgent *string
	Metadata  map[string]string
}

// CreateContact inserts a submission and returns the stored record.
func (q *Queries) CreateContact(ctx context.Context, arg CreateContactParams) (model.Contact, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO contacts (name, email, phone, company, subject, message, status,
			ip_address, user_agent, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Email, nullStr(arg.Phone), nullStr(arg.Company), arg.Subject,
		arg.Message, arg.Status, nullStr(arg.IPAddress), nullStr(arg.UserAgent),
		marshalMetadata(arg.Metadata), now, now,
	)
	if err != nil {
		return model.Contact{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Contact{}, err
	}
	return q.GetContactByID(ctx, id)
}

// GetContactByID returns a submission by primary key.
func (q *Queries) GetContactByID(ctx context.Context, id int64) (model.Contact, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	return scanContact(row)
}

// UpdateContactStatusParams holds the fields for UpdateContactStatus.
// ReadAt and RepliedAt are written as given: the caller owns the
// backfill and clearing rules.
type UpdateContactStatusParams struct {
	ID        int64
	Status    string
	ReadAt    *time.Time
	RepliedAt *time.Time
}

// UpdateContactStatus rewrites a submission's state and its timestamps.
func (q *Queries) UpdateContactStatus(ctx context.Context, arg UpdateContactStatusParams) (model.Contact, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE contacts SET status = ?, read_at = ?, replied_at = ?, updated_at = ?
		WHERE id = ?`,
		arg.Status, nullTime(arg.ReadAt), nullTime(arg.RepliedAt), time.Now().UTC(), arg.ID,
	)
	if err != nil {
		return model.Contact{}, err
	}
	return q.GetContactByID(ctx, arg.ID)
}

// UpdateContactMetadata replaces a submission's metadata blob.
func (q *Queries) UpdateContactMetadata(ctx context.Context, id int64, metadata map[string]string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE contacts SET metadata = ?, updated_at = ? WHERE id = ?`,
		marshalMetadata(metadata), time.Now().UTC(), id)
	return err
}

// DeleteContact removes a submission.
func (q *Queries) DeleteContact(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	return err
}

// DeleteContacts removes several submissions at once.
func (q *Queries) DeleteContacts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id IN (`+inPlaceholders(len(ids))+`)`, int64Args(ids)...)
	return err
}

// BulkMarkContactsRead marks submissions read, stamping read_at only
// where it is still unset.
func (q *Queries) BulkMarkContactsRead(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	args := append([]any{now, now}, int64Args(ids)...)
	_, err := q.db.ExecContext(ctx, `
		UPDATE contacts SET status = 'read',
			read_at = COALESCE(read_at, ?),
			updated_at = ?
		WHERE id IN (`+inPlaceholders(len(ids))+`)`, args...)
	return err
}

// BulkMarkContactsReplied marks submissions replied, backfilling read_at
// and stamping replied_at where unset.
func (q *Queries) BulkMarkContactsReplied(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	args := append([]any{now, now, now}, int64Args(ids)...)
	_, err := q.db.ExecContext(ctx, `
		UPDATE contacts SET status = 'replied',
			read_at = COALESCE(read_at, ?),
			replied_at = COALESCE(replied_at, ?),
			updated_at = ?
		WHERE id IN (`+inPlaceholders(len(ids))+`)`, args...)
	return err
}

// BulkSetContactsStatus moves submissions to a state without touching the
// read/replied timestamps. Used for archive and spam.
func (q *Queries) BulkSetContactsStatus(ctx context.Context, ids []int64, status string) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{status, time.Now().UTC()}, int64Args(ids)...)
	_, err := q.db.ExecContext(ctx,
		`UPDATE contacts SET status = ?, updated_at = ? WHERE id IN (`+inPlaceholders(len(ids))+`)`,
		args...)
	return err
}

// CountContactsFromIPSince counts submissions from an IP after a cutoff.
func (q *Queries) CountContactsFromIPSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE ip_address = ? AND created_at >= ?`,
		ip, since).Scan(&count)
	return count, err
}

// CountContactsFromEmailSince counts submissions from an email after a cutoff.
func (q *Queries) CountContactsFromEmailSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE email = ? AND created_at >= ?`,
		email, since).Scan(&count)
	return count, err
}

// CountContactsSince counts submissions created after a cutoff.
func (q *Queries) CountContactsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE created_at >= ?`, since).Scan(&count)
	return count, err
}

// ContactFilter narrows and orders ListContacts / CountContacts.
type ContactFilter struct {
	Status  string
	Search  string
	Since   *time.Time
	SortBy  string
	SortDir string
	Limit   int
	Offset  int
}

var contactSortColumns = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"email":      "email",
	"status":     "status",
}

func contactFilterWhere(f ContactFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conds = append(conds, "(name LIKE ? OR email LIKE ? OR subject LIKE ? OR message LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if f.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *f.Since)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListContacts returns a page of submissions matching the filter.
// A non-positive limit returns all matches (used by the export).
func (q *Queries) ListContacts(ctx context.Context, f ContactFilter) ([]model.Contact, error) {
	where, args := contactFilterWhere(f)
	order := sortClause(contactSortColumns, f.SortBy, f.SortDir, "created_at DESC")

	query := `SELECT ` + contactColumns + ` FROM contacts` + where + ` ORDER BY ` + order
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// CountContacts returns the number of submissions matching the filter.
func (q *Queries) CountContacts(ctx context.Context, f ContactFilter) (int64, error) {
	where, args := contactFilterWhere(f)
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`+where, args...).Scan(&count)
	return count, err
}

// ContactStatusCounts returns per-state submission counts.
func (q *Queries) ContactStatusCounts(ctx context.Context) ([]CountRow, error) {
	return q.countGroup(ctx,
		`SELECT status, COUNT(*) FROM contacts GROUP BY status ORDER BY status`)
}

// ContactResponseStats holds reply-rate aggregates.
type ContactResponseStats struct {
	Total            int64   `json:"total"`
	Replied          int64   `json:"replied"`
	AvgResponseHours float64 `json:"avg_response_hours"`
}

// GetContactResponseStats computes the reply counters and the average
// time from submission to reply, in hours.
func (q *Queries) GetContactResponseStats(ctx context.Context) (ContactResponseStats, error) {
	var s ContactResponseStats
	var avg sql.NullFloat64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN replied_at IS NOT NULL THEN 1 ELSE 0 END), 0),
			AVG(CASE WHEN replied_at IS NOT NULL
				THEN (julianday(replied_at) - julianday(created_at)) * 24 END)
		FROM contacts`).
		Scan(&s.Total, &s.Replied, &avg)
	if err != nil {
		return s, err
	}
	if avg.Valid {
		s.AvgResponseHours = avg.Float64
	}
	return s, nil
}

// TopContactSubjects returns the most common submission subjects.
func (q *Queries) TopContactSubjects(ctx context.Context, limit int) ([]CountRow, error) {
	return q.countGroup(ctx, `
		SELECT subject, COUNT(*) FROM contacts
		GROUP BY subject ORDER BY COUNT(*) DESC, subject LIMIT ?`, limit)
}
