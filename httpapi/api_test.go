package httpapi_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/httpapi"
	"github.com/rbaliyan/webmail/store"
	"github.com/rbaliyan/webmail/store/memory"
)

const signingKey = "api-test-key"

type apiEnv struct {
	router *gin.Engine
	mem    *memory.Store
	user   store.User
	inbox  store.Mailbox
	sent   store.Mailbox
}

func newAPIEnv(t *testing.T, opts ...httpapi.Option) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := memory.New()
	user := mem.SeedUser(store.User{
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Example",
	})
	inbox := mem.SeedMailbox(store.Mailbox{UserID: user.ID, Name: store.MailboxInbox})
	sent := mem.SeedMailbox(store.Mailbox{UserID: user.ID, Name: store.MailboxSent})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := webmail.NewService(
		webmail.WithStore(mem),
		webmail.WithSigningKey(signingKey),
		webmail.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { svc.Close(context.Background()) })

	opts = append([]httpapi.Option{httpapi.WithLogger(logger)}, opts...)
	api := httpapi.New(svc, opts...)

	return &apiEnv{router: api.Router(), mem: mem, user: user, inbox: inbox, sent: sent}
}

func (e *apiEnv) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestIdentityRequired(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/api/mail", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := decode(t, w)["code"]; got != "auth_required" {
		t.Errorf("code = %v, want auth_required", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodOptions, "/api/mail", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("preflight body = %q, want empty", w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestListMail(t *testing.T) {
	env := newAPIEnv(t)

	if _, _, err := env.mem.CreateEmail(context.Background(), store.EmailData{
		MailboxID: env.inbox.ID,
		From:      "bob@remote.test",
		To:        env.user.Email,
		Subject:   "hello",
	}); err != nil {
		t.Fatalf("seed email: %v", err)
	}

	t.Run("default inbox", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/mail", env.user.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
		}
		out := decode(t, w)
		if out["mailbox"] != "Inbox" {
			t.Errorf("mailbox = %v, want Inbox", out["mailbox"])
		}
		if emails := out["emails"].([]any); len(emails) != 1 {
			t.Errorf("got %d emails, want 1", len(emails))
		}
	})

	t.Run("empty mailbox lists empty array", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/mail?mailbox=Sent", env.user.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if emails := decode(t, w)["emails"].([]any); len(emails) != 0 {
			t.Errorf("got %d emails, want 0", len(emails))
		}
	})

	t.Run("unknown mailbox", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/mail?mailbox=Archive", env.user.ID, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
		if got := decode(t, w)["code"]; got != "mailbox_not_found" {
			t.Errorf("code = %v, want mailbox_not_found", got)
		}
	})
}

func TestGetMail(t *testing.T) {
	env := newAPIEnv(t)

	email, _, err := env.mem.CreateEmail(context.Background(), store.EmailData{
		MailboxID: env.inbox.ID,
		From:      "bob@remote.test",
		To:        env.user.Email,
		Attachments: []store.AttachmentData{
			{Filename: "a.pdf", FileURL: "https://files.test/a.pdf", FileSize: 10, MIMEType: "application/pdf"},
		},
	})
	if err != nil {
		t.Fatalf("seed email: %v", err)
	}

	t.Run("found with attachments", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/mail/"+email.ID, env.user.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
		}
		out := decode(t, w)
		if atts := out["attachments"].([]any); len(atts) != 1 {
			t.Errorf("got %d attachments, want 1", len(atts))
		}
	})

	t.Run("other user's email", func(t *testing.T) {
		other := env.mem.SeedUser(store.User{Username: "mallory", Email: "mallory@example.com"})
		w := env.do(http.MethodGet, "/api/mail/"+email.ID, other.ID, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
		if got := decode(t, w)["code"]; got != "not_found" {
			t.Errorf("code = %v, want not_found", got)
		}
	})
}

func TestSendMail(t *testing.T) {
	env := newAPIEnv(t)

	t.Run("created", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/mail", env.user.ID, gin.H{
			"to":      "bob@remote.test",
			"subject": "hi",
			"body":    "hello bob",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
		}
		out := decode(t, w)
		if out["success"] != true || out["email_id"] == "" {
			t.Errorf("body = %v", out)
		}
	})

	t.Run("invalid recipient", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/mail", env.user.ID, gin.H{"to": "not an address"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if got := decode(t, w)["code"]; got != "invalid_request" {
			t.Errorf("code = %v, want invalid_request", got)
		}
	})

	t.Run("missing body", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/mail", env.user.ID, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("missing Sent mailbox", func(t *testing.T) {
		bare := env.mem.SeedUser(store.User{Username: "bare", Email: "bare@example.com"})
		env.mem.SeedMailbox(store.Mailbox{UserID: bare.ID, Name: store.MailboxInbox})

		w := env.do(http.MethodPost, "/api/mail", bare.ID, gin.H{"to": "bob@remote.test"})
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404; body %s", w.Code, w.Body.String())
		}
		if got := decode(t, w)["code"]; got != "mailbox_not_found" {
			t.Errorf("code = %v, want mailbox_not_found", got)
		}
	})
}

func TestFlagRoutes(t *testing.T) {
	env := newAPIEnv(t)

	email, _, err := env.mem.CreateEmail(context.Background(), store.EmailData{
		MailboxID: env.inbox.ID,
		From:      "bob@remote.test",
		To:        env.user.Email,
	})
	if err != nil {
		t.Fatalf("seed email: %v", err)
	}

	t.Run("mark read", func(t *testing.T) {
		w := env.do(http.MethodPut, "/api/mail/"+email.ID+"/read", env.user.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
		}
		got, _ := env.mem.GetEmail(context.Background(), email.ID, env.user.ID)
		if !got.IsRead {
			t.Error("email not marked read")
		}
	})

	t.Run("mark unread via body", func(t *testing.T) {
		w := env.do(http.MethodPut, "/api/mail/"+email.ID+"/read", env.user.ID, gin.H{"read": false})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		got, _ := env.mem.GetEmail(context.Background(), email.ID, env.user.ID)
		if got.IsRead {
			t.Error("email still read")
		}
	})

	t.Run("toggle star", func(t *testing.T) {
		w := env.do(http.MethodPut, "/api/mail/"+email.ID+"/star", env.user.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		got, _ := env.mem.GetEmail(context.Background(), email.ID, env.user.ID)
		if !got.IsStarred {
			t.Error("email not starred")
		}
	})

	t.Run("not owned is still 200", func(t *testing.T) {
		other := env.mem.SeedUser(store.User{Username: "mallory", Email: "mallory@example.com"})
		w := env.do(http.MethodPut, "/api/mail/"+email.ID+"/read", other.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})
}

func TestMailboxesRoute(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/api/mailboxes", env.user.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if mbs := decode(t, w)["mailboxes"].([]any); len(mbs) != 2 {
		t.Errorf("got %d mailboxes, want 2", len(mbs))
	}
}

func signPayload(key string) gin.H {
	timestamp := "1700000000"
	token := "token-xyz"
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp + token))
	return gin.H{
		"timestamp": timestamp,
		"token":     token,
		"signature": hex.EncodeToString(mac.Sum(nil)),
	}
}

func TestInboundWebhook(t *testing.T) {
	env := newAPIEnv(t)

	t.Run("accepted", func(t *testing.T) {
		w := env.do(http.MethodPost, "/webhooks/inbound", "", gin.H{
			"signature":  signPayload(signingKey),
			"sender":     "bob@remote.test",
			"recipient":  "alice@example.com",
			"subject":    "hello",
			"body-plain": "hi",
			"message-id": "<msg-1@relay.test>",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
		}
		if got := decode(t, w)["status"]; got != "accepted" {
			t.Errorf("status = %v, want accepted", got)
		}
	})

	t.Run("replay is duplicate", func(t *testing.T) {
		w := env.do(http.MethodPost, "/webhooks/inbound", "", gin.H{
			"signature":  signPayload(signingKey),
			"recipient":  "alice@example.com",
			"message-id": "<msg-1@relay.test>",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if got := decode(t, w)["status"]; got != "duplicate" {
			t.Errorf("status = %v, want duplicate", got)
		}
	})

	t.Run("indexed attachments stored", func(t *testing.T) {
		w := env.do(http.MethodPost, "/webhooks/inbound", "", gin.H{
			"signature":        signPayload(signingKey),
			"sender":           "bob@remote.test",
			"recipient":        "alice@example.com",
			"subject":          "with files",
			"body-plain":       "see attached",
			"message-id":       "<msg-2@relay.test>",
			"attachment-count": 2,
			"attachment-1": gin.H{
				"filename":     "report.pdf",
				"url":          "https://relay.test/files/1",
				"size":         1234,
				"content-type": "application/pdf",
			},
			"attachment-2": gin.H{
				"filename":     "photo.png",
				"url":          "https://relay.test/files/2",
				"size":         5678,
				"content-type": "image/png",
			},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
		}
		out := decode(t, w)
		if out["status"] != "accepted" {
			t.Fatalf("status = %v, want accepted", out["status"])
		}

		email, err := env.mem.GetEmail(context.Background(), out["email_id"].(string), env.user.ID)
		if err != nil {
			t.Fatalf("GetEmail: %v", err)
		}
		if len(email.Attachments) != 2 {
			t.Fatalf("got %d attachment rows, want 2", len(email.Attachments))
		}
		first := email.Attachments[0]
		if first.Filename != "report.pdf" || first.MIMEType != "application/pdf" {
			t.Errorf("attachment[0] = %q %q", first.Filename, first.MIMEType)
		}
		if email.Attachments[1].FileURL != "https://relay.test/files/2" {
			t.Errorf("attachment[1] url = %q", email.Attachments[1].FileURL)
		}
	})

	t.Run("string attachment count", func(t *testing.T) {
		w := env.do(http.MethodPost, "/webhooks/inbound", "", gin.H{
			"signature":        signPayload(signingKey),
			"recipient":        "alice@example.com",
			"message-id":       "<msg-3@relay.test>",
			"attachment-count": "1",
			"attachment-1": gin.H{
				"filename":     "notes.txt",
				"url":          "https://relay.test/files/3",
				"size":         9,
				"content-type": "text/plain",
			},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
		}
		out := decode(t, w)

		email, err := env.mem.GetEmail(context.Background(), out["email_id"].(string), env.user.ID)
		if err != nil {
			t.Fatalf("GetEmail: %v", err)
		}
		if len(email.Attachments) != 1 {
			t.Errorf("got %d attachment rows, want 1", len(email.Attachments))
		}
	})

	t.Run("missing recipient discarded", func(t *testing.T) {
		w := env.do(http.MethodPost, "/webhooks/inbound", "", gin.H{
			"signature": signPayload(signingKey),
			"sender":    "bob@remote.test",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
		}
		if got := decode(t, w)["status"]; got != "discarded" {
			t.Errorf("status = %v, want discarded", got)
		}
	})

	t.Run("malformed attachment field", func(t *testing.T) {
		w := env.do(http.MethodPost, "/webhooks/inbound", "", gin.H{
			"signature":        signPayload(signingKey),
			"recipient":        "alice@example.com",
			"attachment-count": 1,
			"attachment-1":     "not an object",
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400; body %s", w.Code, w.Body.String())
		}
	})

	t.Run("unknown recipient discarded", func(t *testing.T) {
		w := env.do(http.MethodPost, "/webhooks/inbound", "", gin.H{
			"signature": signPayload(signingKey),
			"recipient": "nobody@example.com",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if got := decode(t, w)["status"]; got != "discarded" {
			t.Errorf("status = %v, want discarded", got)
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		w := env.do(http.MethodPost, "/webhooks/inbound", "", gin.H{
			"signature": signPayload("wrong-key"),
			"recipient": "alice@example.com",
		})
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403; body %s", w.Code, w.Body.String())
		}
		if got := decode(t, w)["code"]; got != "invalid_signature" {
			t.Errorf("code = %v, want invalid_signature", got)
		}
	})
}

// fakeUploader returns deterministic descriptors.
type fakeUploader struct {
	uploads int
	fail    bool
}

func (f *fakeUploader) Upload(_ context.Context, filename, contentType string, content []byte) (*store.AttachmentData, error) {
	if f.fail {
		return nil, fmt.Errorf("bucket unavailable")
	}
	f.uploads++
	return &store.AttachmentData{
		Filename: filename,
		FileURL:  "https://files.test/" + filename,
		FileSize: int64(len(content)),
		MIMEType: contentType,
	}, nil
}

func TestAttachmentUpload(t *testing.T) {
	t.Run("uploads and returns descriptors", func(t *testing.T) {
		uploader := &fakeUploader{}
		env := newAPIEnv(t, httpapi.WithUploader(uploader))

		w := env.do(http.MethodPost, "/api/mail/attachments", env.user.ID, gin.H{
			"files": []gin.H{
				{"filename": "a.txt", "content": "aGVsbG8=", "mime_type": "text/plain"},
			},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
		}
		files := decode(t, w)["files"].([]any)
		if len(files) != 1 || uploader.uploads != 1 {
			t.Fatalf("files = %v, uploads = %d", files, uploader.uploads)
		}
		first := files[0].(map[string]any)
		if first["url"] != "https://files.test/a.txt" {
			t.Errorf("url = %v", first["url"])
		}
		if first["size"] != float64(5) {
			t.Errorf("size = %v, want 5", first["size"])
		}
	})

	t.Run("no files", func(t *testing.T) {
		env := newAPIEnv(t, httpapi.WithUploader(&fakeUploader{}))
		w := env.do(http.MethodPost, "/api/mail/attachments", env.user.ID, gin.H{"files": []gin.H{}})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("bad base64", func(t *testing.T) {
		env := newAPIEnv(t, httpapi.WithUploader(&fakeUploader{}))
		w := env.do(http.MethodPost, "/api/mail/attachments", env.user.ID, gin.H{
			"files": []gin.H{{"filename": "a.txt", "content": "!!!not base64!!!"}},
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("upload failure", func(t *testing.T) {
		env := newAPIEnv(t, httpapi.WithUploader(&fakeUploader{fail: true}))
		w := env.do(http.MethodPost, "/api/mail/attachments", env.user.ID, gin.H{
			"files": []gin.H{{"filename": "a.txt", "content": "aGVsbG8="}},
		})
		if w.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", w.Code)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		env := newAPIEnv(t)
		w := env.do(http.MethodPost, "/api/mail/attachments", env.user.ID, gin.H{
			"files": []gin.H{{"filename": "a.txt", "content": "aGVsbG8="}},
		})
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", w.Code)
		}
		if got := decode(t, w)["code"]; got != "not_configured" {
			t.Errorf("code = %v, want not_configured", got)
		}
	})
}
