// Package webmail implements the mail core of a small webmail product:
// mailbox resolution, message storage, inbound-webhook ingestion and the
// synchronous client operations behind the HTTP API.
//
// All functionality is exposed via a Service with pluggable storage
// (PostgreSQL, in-memory) and optional external collaborators for SMTP
// relay dispatch and attachment object storage.
//
// # Basic Usage
//
//	// Create in-memory store for testing
//	st := memory.New()
//
//	// Create the service
//	svc, err := webmail.NewService(
//	    webmail.WithStore(st),
//	    webmail.WithSigningKey("mailgun-signing-key"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Connect initializes schema/indexes
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	// Get a client for an authenticated user
//	mb := svc.Client("user-id")
//
//	// List the inbox
//	list, err := mb.Messages(ctx, "")
//
// # Operations
//
//   - Messages: list a named mailbox, newest first, capped at 100
//   - Get: retrieve one email with attachments (ownership-scoped)
//   - Send: relay dispatch plus an atomic append to the Sent mailbox
//   - MarkRead / ToggleStar: ownership-scoped flag updates
//   - Service.Ingest: verified inbound-webhook delivery into an Inbox
//
// Identity is an opaque, already-authenticated user ID supplied by the
// transport layer; the core performs no credential verification.
package webmail
