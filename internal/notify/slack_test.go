package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mglowin/stackwarden/internal/probe"
)

func TestSlackNotifierSendsCard(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(zerolog.Nop(), server.URL,
		WithSlackTiming(time.Millisecond, 1, time.Millisecond, time.Millisecond, 100*time.Millisecond))

	report := Report{
		Domain:    "errors.example.com",
		StartedAt: time.Date(2026, 4, 5, 3, 1, 0, 0, time.UTC),
		Duration:  42 * time.Second,
		Success:   true,
		Checks: []probe.Result{
			{Service: "db", OK: true, Detail: "test query ok"},
			{Service: "web", OK: false, Detail: "status 502"},
		},
		Restarts: []RestartAction{
			{Service: "worker", Success: true, Message: "restarted"},
		},
		Message: "preventive restart complete",
	}
	if err := notifier.Notify(context.Background(), report); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	for _, want := range []string{"errors.example.com", "test query ok", "status 502", "preventive restart complete"} {
		if !strings.Contains(body, want) {
			t.Fatalf("payload missing %q: %s", want, body)
		}
	}
}

func TestSlackNotifierEmptyWebhookIsNoop(t *testing.T) {
	notifier := NewSlackNotifier(zerolog.Nop(), "")
	if _, ok := notifier.(*NoopNotifier); !ok {
		t.Fatalf("expected NoopNotifier, got %T", notifier)
	}
}

func TestMultiNotifierSkipsNilAndAggregates(t *testing.T) {
	var delivered int
	fn := notifierFunc(func(context.Context, Report) error {
		delivered++
		return nil
	})

	multi := NewMultiNotifier(nil, fn, fn)
	if err := multi.Notify(context.Background(), Report{}); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if delivered != 2 {
		t.Fatalf("delivered = %d, want 2", delivered)
	}
}

type notifierFunc func(context.Context, Report) error

func (f notifierFunc) Notify(ctx context.Context, report Report) error { return f(ctx, report) }
