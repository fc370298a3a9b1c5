package store

import "time"

// User is a mail account identity. Users are provisioned out of band;
// the mail core reads them to resolve identity and quota.
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	QuotaUsed int64     `db:"quota_used" json:"quota_used"`
	QuotaSize int64     `db:"quota_size" json:"quota_size"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Mailbox is a named, per-user container of emails.
// Names are unique per user; "Inbox" and "Sent" are canonical.
type Mailbox struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Email is one stored mail record, owned by exactly one mailbox.
// The owning mailbox transitively determines the owning user.
// Bodies are stored as-is; no sanitization is performed here.
type Email struct {
	ID         string    `db:"id" json:"id"`
	MailboxID  string    `db:"mailbox_id" json:"mailbox_id"`
	From       string    `db:"from_address" json:"from"`
	To         string    `db:"to_address" json:"to"`
	Subject    string    `db:"subject" json:"subject"`
	Body       string    `db:"body" json:"body"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	IsStarred  bool      `db:"is_starred" json:"is_starred"`
	ReceivedAt time.Time `db:"received_at" json:"received_at"`

	// AttachmentCount is populated on list reads.
	AttachmentCount int64 `db:"attachment_count" json:"attachment_count"`

	// Attachments is populated on single-email reads.
	Attachments []Attachment `db:"-" json:"attachments,omitempty"`
}

// Attachment is a file reference owned by exactly one email. The content
// lives in an external object store; FileURL is opaque here. Attachments
// are appended with their email and never mutated afterwards.
type Attachment struct {
	ID        string    `db:"id" json:"id"`
	EmailID   string    `db:"email_id" json:"email_id"`
	Filename  string    `db:"filename" json:"filename"`
	FileURL   string    `db:"file_url" json:"url"`
	FileSize  int64     `db:"file_size" json:"size"`
	MIMEType  string    `db:"mime_type" json:"mime_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AttachmentData describes an attachment to persist with a new email.
// The file itself has already been uploaded elsewhere.
type AttachmentData struct {
	Filename string
	FileURL  string
	FileSize int64
	MIMEType string
}

// EmailData contains data for creating a new email with its attachments.
type EmailData struct {
	MailboxID string
	From      string
	To        string
	Subject   string
	Body      string

	// IsRead/IsStarred default to false, which is what both the inbound
	// and outbound append paths want.
	IsRead    bool
	IsStarred bool

	// DedupKey, when non-empty, makes the insert idempotent per mailbox.
	// Inbound ingestion uses the relay-supplied message ID here.
	DedupKey string

	// Attachments are inserted in order, atomically with the email.
	Attachments []AttachmentData
}
