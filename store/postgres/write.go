package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

func (s *Store) CreateEmail(ctx context.Context, data store.EmailData) (*store.Email, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}

	if _, err := uuid.Parse(data.MailboxID); err != nil {
		return nil, false, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()
	email := &store.Email{
		ID:         uuid.New().String(),
		MailboxID:  data.MailboxID,
		From:       data.From,
		To:         data.To,
		Subject:    data.Subject,
		Body:       data.Body,
		IsRead:     data.IsRead,
		IsStarred:  data.IsStarred,
		ReceivedAt: now,
	}

	var dedupKey sql.NullString
	if data.DedupKey != "" {
		dedupKey = sql.NullString{String: data.DedupKey, Valid: true}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: begin: %v", store.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	// The partial unique index on (mailbox_id, dedup_key) makes keyed
	// inserts idempotent without a check-then-insert race.
	var insertedID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO emails (id, mailbox_id, from_address, to_address, subject,
		                    body, is_read, is_starred, dedup_key, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (mailbox_id, dedup_key) WHERE dedup_key IS NOT NULL DO NOTHING
		RETURNING id
	`, email.ID, email.MailboxID, email.From, email.To, email.Subject,
		email.Body, email.IsRead, email.IsStarred, dedupKey, email.ReceivedAt,
	).Scan(&insertedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict on the dedup key: the email was already stored by
			// an earlier delivery of the same callback.
			return s.getByDedupKey(ctx, data.MailboxID, data.DedupKey)
		}
		return nil, false, fmt.Errorf("insert email: %w", err)
	}

	for i, a := range data.Attachments {
		att := store.Attachment{
			ID:        uuid.New().String(),
			EmailID:   email.ID,
			Filename:  a.Filename,
			FileURL:   a.FileURL,
			FileSize:  a.FileSize,
			MIMEType:  a.MIMEType,
			CreatedAt: now,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attachments (id, email_id, filename, file_url,
			                         file_size, mime_type, ordinal, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, att.ID, att.EmailID, att.Filename, att.FileURL,
			att.FileSize, att.MIMEType, i, att.CreatedAt)
		if err != nil {
			return nil, false, fmt.Errorf("insert attachment: %w", err)
		}
		email.Attachments = append(email.Attachments, att)
	}
	email.AttachmentCount = int64(len(email.Attachments))

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%w: commit: %v", store.ErrTransactionFailed, err)
	}

	return email, true, nil
}

// getByDedupKey fetches the email previously stored under a dedup key.
func (s *Store) getByDedupKey(ctx context.Context, mailboxID, key string) (*store.Email, bool, error) {
	var email store.Email
	err := s.db.GetContext(ctx, &email, `
		SELECT id, mailbox_id, from_address, to_address, subject,
		       body, is_read, is_starred, received_at
		FROM emails
		WHERE mailbox_id = $1 AND dedup_key = $2
	`, mailboxID, key)
	if err != nil {
		return nil, false, fmt.Errorf("get deduplicated email: %w", err)
	}

	err = s.db.SelectContext(ctx, &email.Attachments, `
		SELECT id, email_id, filename, file_url, file_size, mime_type, created_at
		FROM attachments
		WHERE email_id = $1
		ORDER BY ordinal
	`, email.ID)
	if err != nil {
		return nil, false, fmt.Errorf("get attachments: %w", err)
	}
	email.AttachmentCount = int64(len(email.Attachments))

	return &email, false, nil
}

func (s *Store) SetRead(ctx context.Context, id, userID string, read bool) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return 0, store.ErrInvalidID
	}
	if _, err := uuid.Parse(userID); err != nil {
		return 0, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `
		UPDATE emails SET is_read = $1
		WHERE id = $2 AND mailbox_id IN (
			SELECT id FROM mailboxes WHERE user_id = $3
		)
	`, read, id, userID)
	if err != nil {
		return 0, fmt.Errorf("set read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}

func (s *Store) ToggleStar(ctx context.Context, id, userID string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return 0, store.ErrInvalidID
	}
	if _, err := uuid.Parse(userID); err != nil {
		return 0, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// The inversion happens in SQL so concurrent toggles cannot lose
	// updates; the engine's row lock serializes them.
	result, err := s.db.ExecContext(ctx, `
		UPDATE emails SET is_starred = NOT is_starred
		WHERE id = $1 AND mailbox_id IN (
			SELECT id FROM mailboxes WHERE user_id = $2
		)
	`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("toggle star: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}
