// Package store provides interfaces and types for webmail storage.
// Implementations are in the store/postgres and store/memory subpackages.
//
// The data model is a tree rooted at User: a User owns Mailboxes, a Mailbox
// owns Emails, an Email owns Attachments. No entity is shared across owners,
// so every access-control check reduces to a join back to the owning user.
//
// Concurrency: all operations must be safe for concurrent use. Multi-row
// writes (an email plus its attachments) must be atomic at the database
// level - a single transaction that commits or rolls back as a unit. No
// application-level locking is required or desired; the storage engine's
// isolation guarantees are relied upon for concurrent flag updates.
package store

import "context"

// ListLimit is the hard cap on emails returned by a single list call.
// Listing does not paginate beyond the cap; callers needing more must
// narrow by mailbox externally.
const ListLimit = 100

// Canonical mailbox names. Every user able to send or receive mail must
// have both provisioned before first use; the store never auto-creates
// them (provisioning is an admin concern).
const (
	MailboxInbox = "Inbox"
	MailboxSent  = "Sent"
)

// Store is the storage interface for the webmail backend.
//
// Composed of:
//   - UserStore: identity resolution (by ID, by username)
//   - MailboxStore: per-user named mailbox resolution
//   - EmailStore: email reads, atomic creation, ownership-scoped flag updates
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	UserStore
	MailboxStore
	EmailStore
}

// UserStore provides read access to the user directory.
// Users are created out of band; the mail core only resolves them.
type UserStore interface {
	// GetUser retrieves a user by ID.
	// Returns ErrNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username (the local part of
	// their address). Used by inbound ingestion to route mail.
	// Returns ErrNotFound if no user has that username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// MailboxStore provides per-user mailbox resolution.
// Lookups are not cached: mailbox sets rarely change and staleness risk
// outweighs cache-invalidation complexity.
type MailboxStore interface {
	// ResolveMailbox returns the mailbox with the given name owned by the
	// given user. Returns ErrNotFound if absent; callers must treat that
	// as terminal for the request.
	ResolveMailbox(ctx context.Context, userID, name string) (*Mailbox, error)

	// ListMailboxes returns all mailboxes owned by the user, in name order.
	ListMailboxes(ctx context.Context, userID string) ([]Mailbox, error)
}

// EmailStoreReader provides read operations for emails.
type EmailStoreReader interface {
	// ListEmails returns emails in a mailbox ordered by received time
	// descending, including a per-email attachment count. limit is capped
	// at ListLimit; zero or negative means ListLimit.
	ListEmails(ctx context.Context, mailboxID string, limit int) ([]Email, error)

	// GetEmail retrieves an email with its attachments, scoped to the
	// requesting user. Returns ErrNotFound both when the email is absent
	// and when it belongs to another user's mailbox, so existence is
	// never leaked.
	GetEmail(ctx context.Context, id, userID string) (*Email, error)
}

// EmailStoreCreator provides atomic email creation.
type EmailStoreCreator interface {
	// CreateEmail inserts an email and all of its attachment rows as one
	// unit of work. Either the email and every attachment are visible, or
	// nothing is - a failure on any row rolls back the whole insert.
	//
	// When data.DedupKey is non-empty the insert is idempotent per
	// mailbox: a second call with the same (mailbox, key) returns the
	// already-stored email and created=false, without inserting. This
	// MUST be atomic at the database level (INSERT ... ON CONFLICT DO
	// NOTHING for PostgreSQL), never check-then-insert.
	CreateEmail(ctx context.Context, data EmailData) (email *Email, created bool, err error)
}

// EmailStoreMutator provides ownership-scoped flag updates.
// Both methods scope the update by a join to the user's mailboxes and
// affect zero rows silently when the email is not owned by the caller -
// the API deliberately does not distinguish "not found" from "not yours"
// for mutations.
type EmailStoreMutator interface {
	// SetRead sets the read flag. Returns the number of rows updated.
	SetRead(ctx context.Context, id, userID string, read bool) (int64, error)

	// ToggleStar inverts the starred flag. Returns the number of rows
	// updated. The inversion happens in the database so concurrent
	// toggles cannot lose updates.
	ToggleStar(ctx context.Context, id, userID string) (int64, error)
}

// EmailStore provides operations for stored emails.
type EmailStore interface {
	EmailStoreReader
	EmailStoreCreator
	EmailStoreMutator
}
