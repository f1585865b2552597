package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mglowin/stackwarden/internal/probe"
)

func TestWebhookNotifierTemplateRendering(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, `{"domain":"{{ .Domain }}","checks":{{ len .Checks }}}`)
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}

	report := Report{
		Domain: "errors.example.com",
		Checks: []probe.Result{{Service: "db", OK: true}},
	}
	if err := notifier.Notify(context.Background(), report); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	if !strings.Contains(body, `"domain":"errors.example.com"`) {
		t.Fatalf("expected domain in payload, got %s", body)
	}
	if !strings.Contains(body, `"checks":1`) {
		t.Fatalf("expected check count in payload, got %s", body)
	}
}

func TestWebhookNotifierDefaultTemplate(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, "")
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}

	report := Report{
		Domain:   "errors.example.com",
		Success:  true,
		Message:  "all services healthy after restart",
		Restarts: []RestartAction{{Service: "worker", Success: true, Message: "restarted"}},
	}
	if err := notifier.Notify(context.Background(), report); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	for _, want := range []string{`"success":true`, `"worker"`, `"all services healthy after restart"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("payload missing %s: %s", want, body)
		}
	}
}

func TestWebhookNotifierRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&calls, 1)
		if count <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, "")
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}
	notifier.poster.timing.backoffInitial = 0
	notifier.poster.timing.backoffMax = 0

	if err := notifier.Notify(context.Background(), Report{Domain: "x"}); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWebhookNotifierDisabled(t *testing.T) {
	notifier, err := NewWebhookNotifier(zerolog.Nop(), "", "")
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}
	if notifier != nil {
		t.Fatalf("expected nil notifier for empty URL")
	}
	if err := notifier.Notify(context.Background(), Report{}); err != nil {
		t.Fatalf("nil notifier Notify error: %v", err)
	}
}
