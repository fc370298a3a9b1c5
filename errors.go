package webmail

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/webmail/store"
)

// Sentinel errors for the webmail package.
// Use errors.Is() to check for these errors.
//
// Errors wrap corresponding store-level errors where applicable, so
// errors.Is(err, webmail.ErrNotFound) matches both service-level and
// store-level "not found" errors.
var (
	// ErrNotFound is returned when an email cannot be found - including
	// emails owned by another user, so existence is never leaked.
	// Wraps store.ErrNotFound for consistent error checking.
	ErrNotFound = fmt.Errorf("webmail: %w", store.ErrNotFound)

	// ErrMailboxNotFound is returned when a named mailbox does not exist
	// for the user. Terminal for the request; mailboxes are never
	// auto-created by the core.
	ErrMailboxNotFound = fmt.Errorf("webmail: mailbox: %w", store.ErrNotFound)

	// ErrUserNotFound is returned when the caller's identity does not
	// resolve to a provisioned user.
	ErrUserNotFound = fmt.Errorf("webmail: user: %w", store.ErrNotFound)

	// ErrStoreRequired is returned when no store is configured.
	ErrStoreRequired = errors.New("webmail: store is required")

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected for consistent error checking.
	ErrNotConnected = fmt.Errorf("webmail: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected for consistent error checking.
	ErrAlreadyConnected = fmt.Errorf("webmail: %w", store.ErrAlreadyConnected)

	// ErrInvalidID is returned when an invalid ID is provided.
	// Wraps store.ErrInvalidID for consistent error checking.
	ErrInvalidID = fmt.Errorf("webmail: %w", store.ErrInvalidID)

	// ErrInvalidSignature is returned when an inbound webhook signature
	// does not verify. The callback is rejected with no side effects.
	ErrInvalidSignature = errors.New("webmail: invalid signature")

	// ErrSigningKeyRequired is returned by Ingest when no webhook signing
	// key is configured. A deployment defect, not a bad inbound message.
	ErrSigningKeyRequired = errors.New("webmail: signing key is required")

	// ErrInboxNotProvisioned is returned when an inbound message resolves
	// to a user without an Inbox. Indicates a provisioning bug.
	ErrInboxNotProvisioned = errors.New("webmail: inbox not provisioned")

	// ErrInvalidMessage is returned for message validation failures.
	ErrInvalidMessage = errors.New("webmail: invalid message")

	// ErrInvalidRecipient is returned when a recipient address is not a
	// parseable email address.
	ErrInvalidRecipient = errors.New("webmail: invalid recipient")

	// ErrSubjectTooLong is returned when subject exceeds maximum length.
	ErrSubjectTooLong = errors.New("webmail: subject too long")

	// ErrBodyTooLarge is returned when body exceeds maximum size.
	ErrBodyTooLarge = errors.New("webmail: body too large")

	// ErrTooManyAttachments is returned when attachment count exceeds the limit.
	ErrTooManyAttachments = errors.New("webmail: too many attachments")

	// ErrAttachmentTooLarge is returned when an attachment exceeds the size limit.
	ErrAttachmentTooLarge = errors.New("webmail: attachment too large")

	// ErrInvalidAttachment is returned when an attachment descriptor is
	// missing its filename or URL.
	ErrInvalidAttachment = errors.New("webmail: invalid attachment")

	// ErrRelayFailed is returned when the SMTP relay collaborator rejects
	// a dispatch. The failure is surfaced with the upstream's message
	// text; retries, if any, are the caller's responsibility.
	ErrRelayFailed = errors.New("webmail: relay failed")
)

// ValidationError provides details about a validation failure.
type ValidationError struct {
	Field   string // The field that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("webmail: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidMessage
}
