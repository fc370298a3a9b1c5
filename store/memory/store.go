// Package memory provides an in-memory Store implementation for testing.
// This store is not suitable for production use - data is not persisted.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store with in-memory storage.
// Thread-safe for concurrent use. Not suitable for production.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*store.User       // by ID
	usernames   map[string]string            // username -> user ID
	mailboxes   map[string]*store.Mailbox    // by ID
	emails      map[string]*store.Email      // by ID
	attachments map[string][]store.Attachment // email ID -> ordered attachments
	dedup       map[string]string            // mailboxID+"\x00"+key -> email ID
	seq         map[string]int64             // email ID -> insertion sequence
	nextSeq     int64
	connected   int32
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:       make(map[string]*store.User),
		usernames:   make(map[string]string),
		mailboxes:   make(map[string]*store.Mailbox),
		emails:      make(map[string]*store.Email),
		attachments: make(map[string][]store.Attachment),
		dedup:       make(map[string]string),
		seq:         make(map[string]int64),
	}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// =============================================================================
// Test Fixtures
// =============================================================================

// SeedUser inserts a user, assigning an ID if absent. Test helper -
// user provisioning is out of scope for the mail core itself.
func (s *Store) SeedUser(u store.User) store.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = &u
	s.usernames[u.Username] = u.ID
	return u
}

// SeedMailbox inserts a mailbox for a user, assigning an ID if absent.
func (s *Store) SeedMailbox(mb store.Mailbox) store.Mailbox {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mb.ID == "" {
		mb.ID = uuid.New().String()
	}
	if mb.CreatedAt.IsZero() {
		mb.CreatedAt = time.Now().UTC()
	}
	s.mailboxes[mb.ID] = &mb
	return mb
}

// =============================================================================
// User Operations
// =============================================================================

func (s *Store) GetUser(_ context.Context, id string) (*store.User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

// =============================================================================
// Mailbox Operations
// =============================================================================

func (s *Store) ResolveMailbox(_ context.Context, userID, name string) (*store.Mailbox, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, mb := range s.mailboxes {
		if mb.UserID == userID && mb.Name == name {
			cp := *mb
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListMailboxes(_ context.Context, userID string) ([]store.Mailbox, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var mbs []store.Mailbox
	for _, mb := range s.mailboxes {
		if mb.UserID == userID {
			mbs = append(mbs, *mb)
		}
	}
	sort.Slice(mbs, func(i, j int) bool { return mbs[i].Name < mbs[j].Name })
	return mbs, nil
}

// =============================================================================
// Email Operations
// =============================================================================

func (s *Store) ListEmails(_ context.Context, mailboxID string, limit int) ([]store.Email, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if mailboxID == "" {
		return nil, store.ErrInvalidID
	}
	if limit <= 0 || limit > store.ListLimit {
		limit = store.ListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var emails []store.Email
	for _, e := range s.emails {
		if e.MailboxID == mailboxID {
			cp := *e
			cp.AttachmentCount = int64(len(s.attachments[e.ID]))
			cp.Attachments = nil
			emails = append(emails, cp)
		}
	}
	// Received time descending; insertion order breaks ties so rapid
	// appends in tests stay deterministic.
	sort.Slice(emails, func(i, j int) bool {
		if emails[i].ReceivedAt.Equal(emails[j].ReceivedAt) {
			return s.seq[emails[i].ID] > s.seq[emails[j].ID]
		}
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})
	if len(emails) > limit {
		emails = emails[:limit]
	}
	return emails, nil
}

func (s *Store) GetEmail(_ context.Context, id, userID string) (*store.Email, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" || userID == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.emails[id]
	if !ok || !s.ownedBy(e, userID) {
		return nil, store.ErrNotFound
	}

	cp := *e
	cp.Attachments = append([]store.Attachment(nil), s.attachments[id]...)
	cp.AttachmentCount = int64(len(cp.Attachments))
	return &cp, nil
}

// ownedBy reports whether the email's mailbox belongs to the user.
// Caller must hold at least a read lock.
func (s *Store) ownedBy(e *store.Email, userID string) bool {
	mb, ok := s.mailboxes[e.MailboxID]
	return ok && mb.UserID == userID
}

func (s *Store) CreateEmail(_ context.Context, data store.EmailData) (*store.Email, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}
	if data.MailboxID == "" {
		return nil, false, store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data.DedupKey != "" {
		if existingID, ok := s.dedup[data.MailboxID+"\x00"+data.DedupKey]; ok {
			cp := *s.emails[existingID]
			cp.Attachments = append([]store.Attachment(nil), s.attachments[existingID]...)
			cp.AttachmentCount = int64(len(cp.Attachments))
			return &cp, false, nil
		}
	}

	now := time.Now().UTC()
	email := &store.Email{
		ID:         uuid.New().String(),
		MailboxID:  data.MailboxID,
		From:       data.From,
		To:         data.To,
		Subject:    data.Subject,
		Body:       data.Body,
		IsRead:     data.IsRead,
		IsStarred:  data.IsStarred,
		ReceivedAt: now,
	}

	var atts []store.Attachment
	for _, a := range data.Attachments {
		atts = append(atts, store.Attachment{
			ID:        uuid.New().String(),
			EmailID:   email.ID,
			Filename:  a.Filename,
			FileURL:   a.FileURL,
			FileSize:  a.FileSize,
			MIMEType:  a.MIMEType,
			CreatedAt: now,
		})
	}

	s.emails[email.ID] = email
	s.attachments[email.ID] = atts
	s.nextSeq++
	s.seq[email.ID] = s.nextSeq
	if data.DedupKey != "" {
		s.dedup[data.MailboxID+"\x00"+data.DedupKey] = email.ID
	}

	cp := *email
	cp.Attachments = append([]store.Attachment(nil), atts...)
	cp.AttachmentCount = int64(len(atts))
	return &cp, true, nil
}

func (s *Store) SetRead(_ context.Context, id, userID string, read bool) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	if id == "" || userID == "" {
		return 0, store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.emails[id]
	if !ok || !s.ownedBy(e, userID) {
		return 0, nil
	}
	e.IsRead = read
	return 1, nil
}

func (s *Store) ToggleStar(_ context.Context, id, userID string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	if id == "" || userID == "" {
		return 0, store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.emails[id]
	if !ok || !s.ownedBy(e, userID) {
		return 0, nil
	}
	e.IsStarred = !e.IsStarred
	return 1, nil
}
