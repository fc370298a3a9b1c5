package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rbaliyan/webmail"
)

// The relay posts attachments as indexed fields - "attachment-count"
// plus one "attachment-1".."attachment-N" object each - rather than an
// array, so the body is decoded as a raw field map first.
type inboundSignature struct {
	Timestamp string `json:"timestamp"`
	Token     string `json:"token"`
	Signature string `json:"signature"`
}

type inboundAttachment struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content-type"`
}

// handleInbound accepts an inbound-relay callback. Unknown recipients
// are acknowledged with 200 so the relay stops retrying; replays of an
// already-stored message acknowledge without a second insert.
func (a *API) handleInbound(c *gin.Context) {
	in, ok := decodeInbound(c)
	if !ok {
		return
	}

	result, err := a.svc.Ingest(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	switch {
	case !result.Delivered:
		c.JSON(http.StatusOK, gin.H{"status": "discarded"})
	case result.Duplicate:
		c.JSON(http.StatusOK, gin.H{"status": "duplicate", "email_id": result.EmailID})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "accepted", "email_id": result.EmailID})
	}
}

// decodeInbound parses the callback body. On failure it writes the 400
// response and returns ok=false.
func decodeInbound(c *gin.Context) (webmail.Inbound, bool) {
	badRequest := func() (webmail.Inbound, bool) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
			"code":  codeInvalidRequest,
		})
		return webmail.Inbound{}, false
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return badRequest()
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return badRequest()
	}

	var sig inboundSignature
	if rawSig, ok := fields["signature"]; ok {
		if err := json.Unmarshal(rawSig, &sig); err != nil {
			return badRequest()
		}
	}

	in := webmail.Inbound{
		Sender:    stringField(fields, "sender"),
		Recipient: stringField(fields, "recipient"),
		Subject:   stringField(fields, "subject"),
		BodyPlain: stringField(fields, "body-plain"),
		BodyHTML:  stringField(fields, "body-html"),
		MessageID: stringField(fields, "message-id"),
		Signature: webmail.InboundSignature{
			Timestamp: sig.Timestamp,
			Token:     sig.Token,
			Signature: sig.Signature,
		},
	}

	count := intField(fields, "attachment-count")
	for i := 1; i <= count; i++ {
		rawAtt, ok := fields[fmt.Sprintf("attachment-%d", i)]
		if !ok {
			continue
		}
		var att inboundAttachment
		if err := json.Unmarshal(rawAtt, &att); err != nil {
			return badRequest()
		}
		in.Attachments = append(in.Attachments, webmail.InboundAttachment{
			Filename:    att.Filename,
			URL:         att.URL,
			Size:        att.Size,
			ContentType: att.ContentType,
		})
	}

	return in, true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// intField accepts both numeric and string-encoded counts; relays are
// not consistent about which they send.
func intField(fields map[string]json.RawMessage, key string) int {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return 0
}
