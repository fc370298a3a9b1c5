package webmail

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// InboundSignature is the signature block supplied by the mail relay on
// every inbound callback.
type InboundSignature struct {
	Timestamp string
	Token     string
	Signature string
}

// Verify recomputes the HMAC-SHA256 of timestamp||token under the shared
// key and compares it against the supplied signature in constant time.
func (s InboundSignature) Verify(key string) bool {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(s.Timestamp + s.Token))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(s.Signature))
}
