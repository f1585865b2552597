package healthcheck

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlers_BeforeHandshake(t *testing.T) {
	tracker := NewTracker()

	for _, handler := range []http.HandlerFunc{HealthHandler(tracker), ReadyHandler(tracker)} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
		var snapshot Snapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if snapshot.Ready || snapshot.EventsHandled != 0 || snapshot.LastEventTime != nil {
			t.Fatalf("unexpected snapshot: %+v", snapshot)
		}
	}
}

func TestHandlers_AfterHandshake(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordReady()
	tracker.RecordEvent()
	tracker.RecordEvent()

	rec := httptest.NewRecorder()
	HealthHandler(tracker)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !snapshot.Ready || snapshot.EventsHandled != 2 || snapshot.LastEventTime == nil {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestTracker_NilSafe(t *testing.T) {
	var tracker *Tracker
	tracker.RecordReady()
	tracker.RecordEvent()
	if tracker.Ready() {
		t.Fatalf("nil tracker must never report ready")
	}
	if got := tracker.Snapshot(); got.Ready || got.EventsHandled != 0 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}
