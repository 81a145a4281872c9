package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hargaemas/gold-monitor/pkg/storage"
)

func TestGetStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	delta := 25.0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/gold-buy" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(MonitorStatus{
			Monitor:  "gold-buy",
			Severity: storage.SeverityWarning,
			Since:    now,
			LastObservation: &storage.Observation{
				Timestamp: now,
				Value:     150,
				Source:    "gold",
			},
			Delta:     &delta,
			Direction: "rising",
		})
	}))
	defer srv.Close()

	c := NewStatusClient(srv.URL, 5*time.Second)
	status, stale, err := c.GetStatus(context.Background(), "gold-buy")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if stale {
		t.Error("expected stale=false without header")
	}
	if status.Severity != storage.SeverityWarning {
		t.Errorf("severity = %s, want warning", status.Severity)
	}
	if status.LastObservation == nil || status.LastObservation.Value != 150 {
		t.Errorf("unexpected last observation: %+v", status.LastObservation)
	}
	if status.Direction != "rising" {
		t.Errorf("direction = %q, want rising", status.Direction)
	}
}

func TestGetStatusStaleHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(StaleHeader, "true")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(MonitorStatus{
			Monitor:  "gold-buy",
			Severity: storage.SeverityUnknown,
			Stale:    true,
		})
	}))
	defer srv.Close()

	c := NewStatusClient(srv.URL, 5*time.Second)
	_, stale, err := c.GetStatus(context.Background(), "gold-buy")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if !stale {
		t.Error("expected stale=true from header")
	}
}

func TestGetStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewStatusClient(srv.URL, 5*time.Second)
	_, _, err := c.GetStatus(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for unknown monitor")
	}
}

func TestGetAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]MonitorStatus{
			{Monitor: "gold-buy", Severity: storage.SeverityNominal},
			{Monitor: "usd-idr", Severity: storage.SeverityCritical},
		})
	}))
	defer srv.Close()

	c := NewStatusClient(srv.URL, 5*time.Second)
	statuses, err := c.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	if statuses[1].Severity != storage.SeverityCritical {
		t.Errorf("severity = %s, want critical", statuses[1].Severity)
	}
}
