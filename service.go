package webmail

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/rbaliyan/webmail/store"
)

// Relay is the outbound SMTP collaborator. Dispatch and local persistence
// are two independent side effects; only persistence is transactional.
// Implementations must bound their network calls with a timeout and
// surface timeouts as errors - retries are the caller's responsibility.
type Relay interface {
	Send(ctx context.Context, msg RelayMessage) error
}

// RelayMessage is the outbound message handed to the relay.
type RelayMessage struct {
	FromName    string
	FromAddress string
	ReplyTo     string
	To          string
	Subject     string
	Body        string
	Attachments []store.AttachmentData
}

// Service is the mail core. It owns the storage connection lifecycle and
// creates per-user clients. Each operation is one short-lived unit of
// work; the service keeps no mutable per-request state.
type Service struct {
	opts      *options
	store     store.Store
	relay     Relay
	logger    *slog.Logger
	otel      *otelInstrumentation
	connected int32
}

// NewService creates a webmail service. A store is required.
func NewService(opts ...Option) (*Service, error) {
	o := newOptions(opts...)
	if o.store == nil {
		return nil, ErrStoreRequired
	}

	inst, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, err
	}

	return &Service{
		opts:   o,
		store:  o.store,
		relay:  o.relay,
		logger: o.logger,
		otel:   inst,
	}, nil
}

// IsConnected returns true if the service is connected and ready.
func (s *Service) IsConnected() bool {
	return atomic.LoadInt32(&s.connected) == 1
}

// Connect establishes the storage connection and initializes schema.
func (s *Service) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return ErrAlreadyConnected
	}
	if err := s.store.Connect(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return err
	}
	s.logger.Info("webmail service connected")
	return nil
}

// Close closes the storage connection. Safe to call twice.
func (s *Service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return nil
	}
	return s.store.Close(ctx)
}

// checkConnected returns an error if the service is not connected.
// Connection state is checked lazily on each operation.
func (s *Service) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return ErrNotConnected
	}
	return nil
}

// Client returns a mailbox client for the given authenticated user ID.
// The returned client shares the service's connections. The ID is
// trusted as already authenticated; credential verification is an
// external collaborator's responsibility.
func (s *Service) Client(userID string) *Client {
	return &Client{svc: s, userID: userID}
}
