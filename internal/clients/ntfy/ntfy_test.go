package ntfy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/devkit/internal/core/domain"
	"github.com/vietddude/devkit/internal/dedupe"
	"github.com/vietddude/devkit/internal/infra/storage/memory"
	"github.com/vietddude/devkit/internal/infra/transport"
	"github.com/vietddude/devkit/internal/pipeline"
	"github.com/vietddude/devkit/internal/retry"
)

type published struct {
	path    string
	headers http.Header
	body    string
}

func newServer(t *testing.T, status int) (*httptest.Server, *[]published) {
	t.Helper()
	var got []published
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = append(got, published{path: r.URL.Path, headers: r.Header.Clone(), body: string(b)})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"abc123","time":1700000000,"event":"message","topic":"alerts","message":"` +
			"done" + `","title":"Build","priority":4,"tags":["rocket"]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newClient(srv *httptest.Server, apiKey string) *Client {
	mem := memory.NewMemoryStorage()
	pipe := pipeline.New(transport.New(),
		pipeline.WithGate(dedupe.NewGate(memory.NewDedupeStore(mem))),
		pipeline.WithPolicy(retry.Policy{
			MaxAttempts: 2,
			Sleep:       func(context.Context, time.Duration) error { return nil },
		}),
	)
	return New(Config{BaseURL: srv.URL + "/", Topic: "alerts", APIKey: apiKey, Cooldown: time.Minute}, pipe)
}

func TestPriorityNumber(t *testing.T) {
	tests := map[Priority]int{
		PriorityMin: 1, PriorityLow: 2, PriorityDefault: 3, PriorityHigh: 4,
		PriorityMax: 5, PriorityUrgent: 5, "HIGH": 4, "bogus": 3, "": 3,
	}
	for p, want := range tests {
		if got := p.Number(); got != want {
			t.Errorf("Priority(%q).Number() = %d, want %d", p, got, want)
		}
	}
}

func TestSend(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	c := newClient(srv, "tk_secret_123")

	resp, err := c.Send(context.Background(), Message{
		Title:    "Build",
		Message:  "done",
		Priority: PriorityHigh,
		Tags:     []string{"ci"},
		Emoji:    "rocket",
		Click:    "https://example.com/run/1",
		Attach:   "https://example.com/log.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, "abc123", resp.ID)
	assert.Equal(t, 4, resp.Priority)
	assert.Equal(t, []string{"rocket"}, resp.Tags)

	require.Len(t, *got, 1)
	p := (*got)[0]
	assert.Equal(t, "/alerts", p.path)
	assert.Equal(t, "done", p.body)
	assert.Equal(t, "text/plain", p.headers.Get("Content-Type"))
	assert.Equal(t, "Build", p.headers.Get("Title"))
	assert.Equal(t, "4", p.headers.Get("Priority"))
	assert.Equal(t, "ci,rocket", p.headers.Get("Tags"))
	assert.Equal(t, "https://example.com/run/1", p.headers.Get("Click"))
	assert.Equal(t, "https://example.com/log.txt", p.headers.Get("Attach"))
	assert.Equal(t, "Bearer tk_secret_123", p.headers.Get("Authorization"))
}

func TestSend_NoAuthAndDefaults(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	c := newClient(srv, "")

	_, err := c.Send(context.Background(), Message{Title: "t", Message: "m", Topic: "other"})
	require.NoError(t, err)

	p := (*got)[0]
	assert.Equal(t, "/other", p.path)
	assert.Equal(t, "3", p.headers.Get("Priority"))
	assert.Empty(t, p.headers.Get("Authorization"))
	assert.Empty(t, p.headers.Get("Tags"))
}

func TestSend_Validation(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	c := newClient(srv, "")

	for _, msg := range []Message{{Message: "m"}, {Title: "t"}, {Title: "t", Message: "m", Topic: "/"}} {
		_, err := c.Send(context.Background(), msg)
		var verr *transport.ValidationError
		assert.True(t, errors.As(err, &verr), "msg %+v: got %v", msg, err)
	}
	assert.Empty(t, *got)
}

func TestSend_AuthFailureRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("bad token: " + r.Header.Get("Authorization")))
	}))
	defer srv.Close()

	c := newClient(srv, "tk_very_secret_1")
	_, err := c.Send(context.Background(), Message{Title: "t", Message: "m"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "tk_very_secret_1")
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestSendWithDedupe(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	c := newClient(srv, "")
	msg := Message{Title: "Build", Message: "done"}

	_, err := c.SendWithDedupe(context.Background(), msg, "")
	require.NoError(t, err)

	_, err = c.SendWithDedupe(context.Background(), msg, "")
	assert.ErrorIs(t, err, ErrSkipped)

	_, err = c.SendWithDedupe(context.Background(), Message{Title: "Build", Message: "failed"}, "")
	require.NoError(t, err)

	assert.Len(t, *got, 2)
}

func TestReadHookContext(t *testing.T) {
	hc := ReadHookContext(strings.NewReader(`{"cwd":"/work/app","session_id":"1234567890","model":"opus"}`))
	assert.Equal(t, "/work/app", hc.Cwd)
	assert.Equal(t, "opus", hc.ModelName())

	assert.Equal(t, domain.HookContext{}, ReadHookContext(strings.NewReader("not json")))
	assert.Equal(t, domain.HookContext{}, ReadHookContext(strings.NewReader("")))
	assert.Equal(t, domain.HookContext{}, ReadHookContext(nil))
}

func TestEnhanceMessage(t *testing.T) {
	hc := domain.HookContext{Cwd: "/work/app", SessionID: "1234567890", Model: "opus"}

	full := EnhanceMessage("done", hc, IncludeAuto, "/home/me")
	assert.Equal(t, "done\n\n📁 Project: app\n📂 Path: /work/app\n🔑 Session: 12345678\n🤖 Model: opus", full)

	assert.Equal(t, "done", EnhanceMessage("done", hc, IncludeNo, "/home/me"))
	assert.Equal(t, "done", EnhanceMessage("done", domain.HookContext{Cwd: "/home/me"}, IncludeAuto, "/home/me"))
	assert.Equal(t, "done", EnhanceMessage("done", domain.HookContext{}, IncludeYes, "/home/me"))

	home := EnhanceMessage("done", domain.HookContext{Cwd: "/home/me"}, IncludeYes, "/home/me")
	assert.Equal(t, "done\n\n📁 Project: me\n📂 Path: /home/me", home)
}
