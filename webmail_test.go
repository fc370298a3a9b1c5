package webmail

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/rbaliyan/webmail/store"
	"github.com/rbaliyan/webmail/store/memory"
)

// testEnv is the common fixture: a connected service over the memory
// store with one fully provisioned user.
type testEnv struct {
	svc   *Service
	mem   *memory.Store
	user  store.User
	inbox store.Mailbox
	sent  store.Mailbox
}

const testSigningKey = "test-signing-key"

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	mem := memory.New()
	user := mem.SeedUser(store.User{
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Example",
		IsActive: true,
	})
	inbox := mem.SeedMailbox(store.Mailbox{UserID: user.ID, Name: store.MailboxInbox})
	sent := mem.SeedMailbox(store.Mailbox{UserID: user.ID, Name: store.MailboxSent})

	opts = append([]Option{
		WithStore(mem),
		WithSigningKey(testSigningKey),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)

	svc, err := NewService(opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { svc.Close(context.Background()) })

	return &testEnv{svc: svc, mem: mem, user: user, inbox: inbox, sent: sent}
}

func TestServiceLifecycle(t *testing.T) {
	mem := memory.New()
	svc, err := NewService(
		WithStore(mem),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	t.Run("operations before connect fail", func(t *testing.T) {
		_, err := svc.Client("some-user").Messages(context.Background(), "")
		if err != ErrNotConnected {
			t.Errorf("Messages before Connect = %v, want ErrNotConnected", err)
		}
	})

	t.Run("double connect fails", func(t *testing.T) {
		if err := svc.Connect(context.Background()); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := svc.Connect(context.Background()); err != ErrAlreadyConnected {
			t.Errorf("second Connect = %v, want ErrAlreadyConnected", err)
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		if err := svc.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
		if err := svc.Close(context.Background()); err != nil {
			t.Errorf("second Close: %v", err)
		}
	})
}

func TestNewServiceRequiresStore(t *testing.T) {
	if _, err := NewService(); err != ErrStoreRequired {
		t.Errorf("NewService() = %v, want ErrStoreRequired", err)
	}
}
