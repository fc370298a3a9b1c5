package webmail

import (
	"errors"
	"strings"
	"testing"

	"github.com/rbaliyan/webmail/store"
)

func TestValidateSend(t *testing.T) {
	limits := DefaultLimits()

	t.Run("valid request", func(t *testing.T) {
		err := validateSend(SendRequest{
			To:      "bob@remote.test",
			Subject: "hello",
			Body:    "hi",
		}, limits)
		if err != nil {
			t.Errorf("validateSend = %v, want nil", err)
		}
	})

	t.Run("missing recipient", func(t *testing.T) {
		err := validateSend(SendRequest{To: "  "}, limits)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "to" {
			t.Errorf("validateSend = %v, want ValidationError on to", err)
		}
		if !errors.Is(err, ErrInvalidMessage) {
			t.Error("ValidationError does not unwrap to ErrInvalidMessage")
		}
	})

	t.Run("unparseable recipient", func(t *testing.T) {
		err := validateSend(SendRequest{To: "not an address"}, limits)
		if !errors.Is(err, ErrInvalidRecipient) {
			t.Errorf("validateSend = %v, want ErrInvalidRecipient", err)
		}
	})

	t.Run("subject too long", func(t *testing.T) {
		err := validateSend(SendRequest{
			To:      "bob@remote.test",
			Subject: strings.Repeat("x", limits.MaxSubjectLength+1),
		}, limits)
		if !errors.Is(err, ErrSubjectTooLong) {
			t.Errorf("validateSend = %v, want ErrSubjectTooLong", err)
		}
	})

	t.Run("body too large", func(t *testing.T) {
		err := validateSend(SendRequest{
			To:   "bob@remote.test",
			Body: strings.Repeat("x", 17),
		}, MessageLimits{
			MaxSubjectLength:   limits.MaxSubjectLength,
			MaxBodySize:        16,
			MaxAttachmentSize:  limits.MaxAttachmentSize,
			MaxAttachmentCount: limits.MaxAttachmentCount,
		})
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Errorf("validateSend = %v, want ErrBodyTooLarge", err)
		}
	})

	t.Run("too many attachments", func(t *testing.T) {
		atts := make([]store.AttachmentData, limits.MaxAttachmentCount+1)
		for i := range atts {
			atts[i] = store.AttachmentData{Filename: "f", FileURL: "https://files.test/f"}
		}
		err := validateSend(SendRequest{To: "bob@remote.test", Attachments: atts}, limits)
		if !errors.Is(err, ErrTooManyAttachments) {
			t.Errorf("validateSend = %v, want ErrTooManyAttachments", err)
		}
	})

	t.Run("attachment missing url", func(t *testing.T) {
		err := validateSend(SendRequest{
			To:          "bob@remote.test",
			Attachments: []store.AttachmentData{{Filename: "f"}},
		}, limits)
		if !errors.Is(err, ErrInvalidAttachment) {
			t.Errorf("validateSend = %v, want ErrInvalidAttachment", err)
		}
	})

	t.Run("attachment too large", func(t *testing.T) {
		err := validateSend(SendRequest{
			To: "bob@remote.test",
			Attachments: []store.AttachmentData{{
				Filename: "f",
				FileURL:  "https://files.test/f",
				FileSize: limits.MaxAttachmentSize + 1,
			}},
		}, limits)
		if !errors.Is(err, ErrAttachmentTooLarge) {
			t.Errorf("validateSend = %v, want ErrAttachmentTooLarge", err)
		}
	})
}

func TestLocalPart(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "alice"},
		{"Alice Example <alice@example.com>", "alice"},
		{"alice", "alice"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := localPart(tc.in); got != tc.want {
			t.Errorf("localPart(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
