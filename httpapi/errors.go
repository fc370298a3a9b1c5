package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rbaliyan/webmail"
)

// Stable machine-readable error codes. Clients branch on these; the
// human text may change.
const (
	codeAuthRequired     = "auth_required"
	codeInvalidRequest   = "invalid_request"
	codeMailboxNotFound  = "mailbox_not_found"
	codeNotFound         = "not_found"
	codeInvalidSignature = "invalid_signature"
	codeNotConfigured    = "not_configured"
	codeUpstreamError    = "upstream_error"
	codeMethodNotAllowed = "method_not_allowed"
	codeInternal         = "internal_error"
)

// writeError maps a service error to a status, code and human message.
// Unrecognized errors become an opaque 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := codeInternal
	message := "Internal server error"

	var vErr *webmail.ValidationError

	switch {
	case errors.Is(err, webmail.ErrMailboxNotFound):
		status, code, message = http.StatusNotFound, codeMailboxNotFound, "Mailbox not found"
	case errors.Is(err, webmail.ErrUserNotFound):
		status, code, message = http.StatusNotFound, codeNotFound, "User not found"
	case errors.Is(err, webmail.ErrNotFound):
		status, code, message = http.StatusNotFound, codeNotFound, "Not found"
	case errors.As(err, &vErr):
		status, code, message = http.StatusBadRequest, codeInvalidRequest, vErr.Message
	case errors.Is(err, webmail.ErrInvalidMessage),
		errors.Is(err, webmail.ErrInvalidRecipient),
		errors.Is(err, webmail.ErrSubjectTooLong),
		errors.Is(err, webmail.ErrBodyTooLarge),
		errors.Is(err, webmail.ErrTooManyAttachments),
		errors.Is(err, webmail.ErrAttachmentTooLarge),
		errors.Is(err, webmail.ErrInvalidAttachment),
		errors.Is(err, webmail.ErrInvalidID):
		status, code, message = http.StatusBadRequest, codeInvalidRequest, err.Error()
	case errors.Is(err, webmail.ErrInvalidSignature):
		status, code, message = http.StatusForbidden, codeInvalidSignature, "Invalid signature"
	case errors.Is(err, webmail.ErrSigningKeyRequired),
		errors.Is(err, webmail.ErrInboxNotProvisioned):
		status, code, message = http.StatusInternalServerError, codeNotConfigured, "Service misconfigured"
	case errors.Is(err, webmail.ErrRelayFailed):
		status, code, message = http.StatusBadGateway, codeUpstreamError, "Upstream delivery failed"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

func methodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{
		"error": "Method not allowed",
		"code":  codeMethodNotAllowed,
	})
}
