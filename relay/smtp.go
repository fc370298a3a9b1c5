// Package relay delivers outbound messages through an SMTP submission
// endpoint.
package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rbaliyan/webmail"
	"gopkg.in/gomail.v2"
)

// DefaultFetchTimeout bounds the download of one attachment from the
// object store before it is attached to the outgoing message.
const DefaultFetchTimeout = 10 * time.Second

// SMTP relays messages through an SMTP server using authenticated
// submission. Messages go out from the relay's own account address with
// the user's name as display name and their address in Reply-To, so
// replies route back without the relay domain needing per-user accounts.
type SMTP struct {
	dialer  *gomail.Dialer
	from    string
	fetcher *http.Client
	logger  *slog.Logger
}

// Ensure SMTP implements webmail.Relay.
var _ webmail.Relay = (*SMTP)(nil)

// options holds SMTP relay configuration.
type options struct {
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// Option configures the SMTP relay.
type Option func(*options)

// WithFetchTimeout bounds attachment downloads.
// Default is DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fetchTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewSMTP creates an SMTP relay. The account address doubles as the
// envelope sender for every message.
func NewSMTP(host string, port int, account, password string, opts ...Option) *SMTP {
	o := &options{
		fetchTimeout: DefaultFetchTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &SMTP{
		dialer:  gomail.NewDialer(host, port, account, password),
		from:    account,
		fetcher: &http.Client{Timeout: o.fetchTimeout},
		logger:  o.logger,
	}
}

// Send builds the MIME message and submits it. Attachment content is
// fetched from the object store by URL at send time; a failed fetch
// fails the whole send rather than dropping the attachment.
func (r *SMTP) Send(ctx context.Context, msg webmail.RelayMessage) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", r.from, msg.FromName)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	for _, a := range msg.Attachments {
		content, err := r.fetch(ctx, a.FileURL)
		if err != nil {
			return fmt.Errorf("fetch attachment %q: %w", a.Filename, err)
		}
		m.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {a.MIMEType},
			}),
		)
	}

	if err := r.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	r.logger.Debug("message relayed", "to", msg.To, "attachments", len(msg.Attachments))
	return nil
}

func (r *SMTP) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.fetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
