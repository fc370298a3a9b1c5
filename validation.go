package webmail

import (
	"net/mail"
	"strings"
)

// MessageLimits holds outbound message validation limits.
type MessageLimits struct {
	MaxSubjectLength   int
	MaxBodySize        int
	MaxAttachmentSize  int64
	MaxAttachmentCount int
}

// DefaultLimits returns the default message limits.
func DefaultLimits() MessageLimits {
	return MessageLimits{
		MaxSubjectLength:   DefaultMaxSubjectLength,
		MaxBodySize:        DefaultMaxBodySize,
		MaxAttachmentSize:  DefaultMaxAttachmentSize,
		MaxAttachmentCount: DefaultMaxAttachmentCount,
	}
}

// validateSend checks an outbound request against the configured limits
// before any storage access. Validation failures are permanent errors.
func validateSend(req SendRequest, limits MessageLimits) error {
	if strings.TrimSpace(req.To) == "" {
		return &ValidationError{Field: "to", Message: "recipient is required"}
	}
	if _, err := mail.ParseAddress(req.To); err != nil {
		return ErrInvalidRecipient
	}
	if len(req.Subject) > limits.MaxSubjectLength {
		return ErrSubjectTooLong
	}
	if len(req.Body) > limits.MaxBodySize {
		return ErrBodyTooLarge
	}
	if len(req.Attachments) > limits.MaxAttachmentCount {
		return ErrTooManyAttachments
	}
	for _, a := range req.Attachments {
		if a.Filename == "" || a.FileURL == "" {
			return ErrInvalidAttachment
		}
		if a.FileSize > limits.MaxAttachmentSize {
			return ErrAttachmentTooLarge
		}
	}
	return nil
}

// localPart extracts the local part (before "@") of an address that may
// carry a display name. An address without "@" is returned as-is.
func localPart(address string) string {
	addr := address
	if parsed, err := mail.ParseAddress(address); err == nil {
		addr = parsed.Address
	}
	if i := strings.Index(addr, "@"); i >= 0 {
		return addr[:i]
	}
	return addr
}
