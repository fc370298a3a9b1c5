package webmail

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbaliyan/webmail/store"
)

// Client provides mailbox operations for one authenticated user.
type Client struct {
	svc    *Service
	userID string
}

// UserID returns the client's user ID.
func (c *Client) UserID() string {
	return c.userID
}

// MessageList is the result of listing a mailbox.
type MessageList struct {
	Mailbox string
	Emails  []store.Email
}

// SendRequest contains the data needed to send a message.
// Attachment descriptors reference files already uploaded to the
// external object store.
type SendRequest struct {
	To          string
	Subject     string
	Body        string
	Attachments []store.AttachmentData
}

// Messages lists the named mailbox, newest received first, capped at
// store.ListLimit. An empty name means Inbox. Returns ErrMailboxNotFound
// if the mailbox is not provisioned for this user.
func (c *Client) Messages(ctx context.Context, mailboxName string) (*MessageList, error) {
	if err := c.svc.checkConnected(); err != nil {
		return nil, err
	}
	if mailboxName == "" {
		mailboxName = store.MailboxInbox
	}

	ctx, end := c.svc.otel.start(ctx, opList)

	mb, err := c.svc.store.ResolveMailbox(ctx, c.userID, mailboxName)
	if err != nil {
		if store.IsNotFound(err) {
			end(nil)
			return nil, ErrMailboxNotFound
		}
		end(err)
		return nil, fmt.Errorf("resolve mailbox: %w", err)
	}

	emails, err := c.svc.store.ListEmails(ctx, mb.ID, store.ListLimit)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list emails: %w", err)
	}

	end(nil)
	return &MessageList{Mailbox: mailboxName, Emails: emails}, nil
}

// Mailboxes lists the user's mailboxes in name order.
func (c *Client) Mailboxes(ctx context.Context) ([]store.Mailbox, error) {
	if err := c.svc.checkConnected(); err != nil {
		return nil, err
	}
	return c.svc.store.ListMailboxes(ctx, c.userID)
}

// Get retrieves one email with its attachments. Returns ErrNotFound for
// absent emails and for emails owned by another user alike.
func (c *Client) Get(ctx context.Context, id string) (*store.Email, error) {
	if err := c.svc.checkConnected(); err != nil {
		return nil, err
	}

	ctx, end := c.svc.otel.start(ctx, opGet)

	email, err := c.svc.store.GetEmail(ctx, id, c.userID)
	if err != nil {
		if store.IsNotFound(err) || store.IsInvalidID(err) {
			end(nil)
			return nil, ErrNotFound
		}
		end(err)
		return nil, fmt.Errorf("get email: %w", err)
	}

	end(nil)
	return email, nil
}

// Send validates the request, dispatches it through the relay (when one
// is configured) and appends a copy to the user's Sent mailbox with its
// attachment rows in one unit of work.
//
// A missing Sent mailbox is an explicit ErrMailboxNotFound, never a
// silent success. Relay dispatch happens before persistence; the two are
// not atomic with each other, so a storage failure after a successful
// dispatch surfaces an error for a message already on the wire.
func (c *Client) Send(ctx context.Context, req SendRequest) (*store.Email, error) {
	if err := c.svc.checkConnected(); err != nil {
		return nil, err
	}
	if err := validateSend(req, c.svc.opts.limits); err != nil {
		return nil, err
	}

	ctx, end := c.svc.otel.start(ctx, opSend)

	user, err := c.svc.store.GetUser(ctx, c.userID)
	if err != nil {
		end(err)
		if store.IsNotFound(err) || store.IsInvalidID(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve sender: %w", err)
	}

	sent, err := c.svc.store.ResolveMailbox(ctx, c.userID, store.MailboxSent)
	if err != nil {
		end(err)
		if store.IsNotFound(err) {
			return nil, ErrMailboxNotFound
		}
		return nil, fmt.Errorf("resolve sent mailbox: %w", err)
	}

	if c.svc.relay != nil {
		fromName := user.FullName
		if fromName == "" {
			fromName = user.Email
		}
		err = c.svc.relay.Send(ctx, RelayMessage{
			FromName:    fromName,
			FromAddress: user.Email,
			ReplyTo:     user.Email,
			To:          req.To,
			Subject:     req.Subject,
			Body:        req.Body,
			Attachments: req.Attachments,
		})
		if err != nil {
			end(err)
			return nil, errors.Join(ErrRelayFailed, err)
		}
	}

	email, _, err := c.svc.store.CreateEmail(ctx, store.EmailData{
		MailboxID:   sent.ID,
		From:        user.Email,
		To:          req.To,
		Subject:     req.Subject,
		Body:        req.Body,
		Attachments: req.Attachments,
	})
	if err != nil {
		end(err)
		return nil, fmt.Errorf("append sent copy: %w", err)
	}

	end(nil)
	c.svc.logger.Info("message sent",
		"user", c.userID, "email", email.ID, "attachments", len(req.Attachments))
	return email, nil
}

// MarkRead marks an email as read. The update is scoped to the caller's
// mailboxes and is a silent no-op if the email is not owned by them.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.setRead(ctx, id, true)
}

// MarkUnread marks an email as unread.
func (c *Client) MarkUnread(ctx context.Context, id string) error {
	return c.setRead(ctx, id, false)
}

func (c *Client) setRead(ctx context.Context, id string, read bool) error {
	if err := c.svc.checkConnected(); err != nil {
		return err
	}

	ctx, end := c.svc.otel.start(ctx, opFlag)

	rows, err := c.svc.store.SetRead(ctx, id, c.userID, read)
	if err != nil {
		end(err)
		if store.IsInvalidID(err) {
			return ErrInvalidID
		}
		return fmt.Errorf("set read: %w", err)
	}
	if rows == 0 {
		c.svc.logger.Debug("read flag update matched no rows", "user", c.userID, "email", id)
	}

	end(nil)
	return nil
}

// ToggleStar inverts an email's starred flag. Toggling twice restores
// the original value. Silent no-op if the email is not owned by the
// caller.
func (c *Client) ToggleStar(ctx context.Context, id string) error {
	if err := c.svc.checkConnected(); err != nil {
		return err
	}

	ctx, end := c.svc.otel.start(ctx, opFlag)

	rows, err := c.svc.store.ToggleStar(ctx, id, c.userID)
	if err != nil {
		end(err)
		if store.IsInvalidID(err) {
			return ErrInvalidID
		}
		return fmt.Errorf("toggle star: %w", err)
	}
	if rows == 0 {
		c.svc.logger.Debug("star toggle matched no rows", "user", c.userID, "email", id)
	}

	end(nil)
	return nil
}
