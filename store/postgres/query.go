package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// =============================================================================
// User Operations
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id string) (*store.User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var u store.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, username, email, full_name, is_active, is_admin,
		       quota_used, quota_size, created_at
		FROM mail_users
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var u store.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, username, email, full_name, is_active, is_admin,
		       quota_used, quota_size, created_at
		FROM mail_users
		WHERE username = $1
	`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	return &u, nil
}

// =============================================================================
// Mailbox Operations
// =============================================================================

func (s *Store) ResolveMailbox(ctx context.Context, userID, name string) (*store.Mailbox, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(userID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var mb store.Mailbox
	err := s.db.GetContext(ctx, &mb, `
		SELECT id, user_id, name, created_at
		FROM mailboxes
		WHERE user_id = $1 AND name = $2
	`, userID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("resolve mailbox: %w", err)
	}

	return &mb, nil
}

func (s *Store) ListMailboxes(ctx context.Context, userID string) ([]store.Mailbox, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(userID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var mbs []store.Mailbox
	err := s.db.SelectContext(ctx, &mbs, `
		SELECT id, user_id, name, created_at
		FROM mailboxes
		WHERE user_id = $1
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list mailboxes: %w", err)
	}

	return mbs, nil
}

// =============================================================================
// Email Reads
// =============================================================================

func (s *Store) ListEmails(ctx context.Context, mailboxID string, limit int) ([]store.Email, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(mailboxID); err != nil {
		return nil, store.ErrInvalidID
	}

	if limit <= 0 || limit > store.ListLimit {
		limit = store.ListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var emails []store.Email
	err := s.db.SelectContext(ctx, &emails, `
		SELECT e.id, e.mailbox_id, e.from_address, e.to_address, e.subject,
		       e.body, e.is_read, e.is_starred, e.received_at,
		       COALESCE(
		           (SELECT COUNT(*) FROM attachments WHERE email_id = e.id),
		           0
		       ) AS attachment_count
		FROM emails e
		WHERE e.mailbox_id = $1
		ORDER BY e.received_at DESC
		LIMIT $2
	`, mailboxID, limit)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}

	return emails, nil
}

func (s *Store) GetEmail(ctx context.Context, id, userID string) (*store.Email, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// Ownership is a join back to the user's mailboxes. An email owned by
	// another user yields the same ErrNotFound as an absent one.
	var email store.Email
	err := s.db.GetContext(ctx, &email, `
		SELECT e.id, e.mailbox_id, e.from_address, e.to_address, e.subject,
		       e.body, e.is_read, e.is_starred, e.received_at
		FROM emails e
		JOIN mailboxes m ON m.id = e.mailbox_id
		WHERE e.id = $1 AND m.user_id = $2
	`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get email: %w", err)
	}

	err = s.db.SelectContext(ctx, &email.Attachments, `
		SELECT id, email_id, filename, file_url, file_size, mime_type, created_at
		FROM attachments
		WHERE email_id = $1
		ORDER BY ordinal
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get attachments: %w", err)
	}
	email.AttachmentCount = int64(len(email.Attachments))

	return &email, nil
}
