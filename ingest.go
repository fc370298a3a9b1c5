package webmail

import (
	"context"
	"fmt"

	"github.com/rbaliyan/webmail/store"
)

// InboundAttachment describes a file already uploaded by the relay to
// its own storage. The gateway records the reference; it never fetches
// or re-hosts the content.
type InboundAttachment struct {
	Filename    string
	URL         string
	Size        int64
	ContentType string
}

// Inbound is a verified-relay callback carrying one inbound email.
type Inbound struct {
	Sender    string
	Recipient string
	Subject   string
	BodyPlain string
	BodyHTML  string

	// MessageID is the relay's message identifier, used as a dedup key
	// when present. Callbacks without one are not deduplicated: a
	// replayed, signature-valid callback then stores a duplicate.
	MessageID string

	Signature   InboundSignature
	Attachments []InboundAttachment
}

// IngestResult reports what Ingest did with a callback.
type IngestResult struct {
	// Delivered is false when the recipient resolved to no local user
	// and the message was deliberately discarded.
	Delivered bool
	// Duplicate is true when the dedup key matched an email stored by an
	// earlier delivery of the same callback.
	Duplicate bool
	// EmailID is the stored email's ID when Delivered.
	EmailID string
}

// Ingest converts an inbound-relay callback into a stored email.
//
// The callback is verified, routed by the recipient's local part and
// appended - message plus attachment rows - as one unit of work. An
// unknown recipient is accepted and discarded so the upstream relay does
// not retry; a missing Inbox for a known recipient is a provisioning
// failure, not a bad message.
func (s *Service) Ingest(ctx context.Context, in Inbound) (*IngestResult, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if s.opts.signingKey == "" {
		return nil, ErrSigningKeyRequired
	}

	ctx, end := s.otel.start(ctx, opIngest)

	if !in.Signature.Verify(s.opts.signingKey) {
		end(nil)
		s.logger.Warn("inbound callback rejected", "reason", "invalid signature")
		return nil, ErrInvalidSignature
	}

	username := localPart(in.Recipient)
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if store.IsNotFound(err) {
			end(nil)
			s.logger.Info("inbound recipient unknown, discarding",
				"recipient", in.Recipient)
			return &IngestResult{Delivered: false}, nil
		}
		end(err)
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	inbox, err := s.store.ResolveMailbox(ctx, user.ID, store.MailboxInbox)
	if err != nil {
		end(err)
		if store.IsNotFound(err) {
			return nil, ErrInboxNotProvisioned
		}
		return nil, fmt.Errorf("resolve inbox: %w", err)
	}

	body := in.BodyHTML
	if body == "" {
		body = in.BodyPlain
	}

	data := store.EmailData{
		MailboxID: inbox.ID,
		From:      in.Sender,
		To:        in.Recipient,
		Subject:   in.Subject,
		Body:      body,
		DedupKey:  in.MessageID,
	}
	for _, a := range in.Attachments {
		filename := a.Filename
		if filename == "" {
			filename = "unknown"
		}
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		data.Attachments = append(data.Attachments, store.AttachmentData{
			Filename: filename,
			FileURL:  a.URL,
			FileSize: a.Size,
			MIMEType: contentType,
		})
	}

	email, created, err := s.store.CreateEmail(ctx, data)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("store inbound email: %w", err)
	}

	end(nil)
	if !created {
		s.logger.Info("inbound callback replayed, returning stored email",
			"email", email.ID, "message_id", in.MessageID)
	} else {
		s.logger.Info("inbound email stored",
			"email", email.ID, "user", user.ID, "attachments", len(data.Attachments))
	}

	return &IngestResult{
		Delivered: true,
		Duplicate: !created,
		EmailID:   email.ID,
	}, nil
}
