package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T, origins ...string) *Hub {
	t.Helper()

	hub := NewHub(HubOptions{
		AllowedOrigins: origins,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func dial(t *testing.T, server *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return websocket.DefaultDialer.Dial(wsURL, header)
}

// waitForClients polls until the hub reports want clients or the deadline passes.
func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := newTestHub(t)

	if !hub.BroadcastEvent(Event{Type: "test:event", Data: map[string]string{"message": "hello"}}) {
		t.Error("expected broadcast to be queued")
	}
}

func TestHub_BroadcastBeforeRunDoesNotBlock(t *testing.T) {
	hub := NewHub(HubOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+5; i++ {
			hub.BroadcastEvent(Event{Type: "queued"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastEvent blocked without a running hub")
	}
}

func TestHub_MultipleClients(t *testing.T) {
	hub := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := dial(t, server, nil)
		if err != nil {
			t.Fatalf("Failed to connect client %d: %v", i, err)
		}
		conns = append(conns, conn)
	}
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()
	waitForClients(t, hub, 3)

	hub.BroadcastEvent(Event{Type: "broadcast:test", Data: map[string]int{"value": 42}})

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("Client %d failed to read message: %v", i, err)
			continue
		}

		var received Event
		if err := json.Unmarshal(message, &received); err != nil {
			t.Errorf("Client %d failed to unmarshal message: %v", i, err)
			continue
		}
		if received.Type != "broadcast:test" {
			t.Errorf("Client %d expected type broadcast:test, got %s", i, received.Type)
		}
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	conn, _, err := dial(t, server, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	hub := newTestHub(t, "http://localhost:*")
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	_, resp, err := dial(t, server, http.Header{"Origin": []string{"http://evil.example"}})
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}

	conn, _, err := dial(t, server, http.Header{"Origin": []string{"http://localhost:5173"}})
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()
}

func TestHub_StopRejectsNewClients(t *testing.T) {
	hub := newTestHub(t)
	hub.Stop()

	deadline := time.Now().Add(time.Second)
	for !hub.IsStopped() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !hub.IsStopped() {
		t.Fatal("hub did not stop")
	}

	rec := httptest.NewRecorder()
	hub.ServeWs(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if hub.BroadcastEvent(Event{Type: "late"}) {
		t.Error("broadcast after stop should be dropped")
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		origin   string
		patterns []string
		want     bool
	}{
		{"http://localhost:3000", []string{"http://localhost:*"}, true},
		{"http://localhost", []string{"http://localhost:*"}, true},
		{"http://localhost.evil:3000", []string{"http://localhost:*"}, false},
		{"https://app.example", []string{"https://app.example"}, true},
		{"https://other.example", []string{"https://app.example"}, false},
		{"https://anything", []string{"*"}, true},
		{"https://anything", nil, false},
	}

	for _, tt := range tests {
		if got := originAllowed(tt.origin, tt.patterns); got != tt.want {
			t.Errorf("originAllowed(%q, %v) = %v, want %v", tt.origin, tt.patterns, got, tt.want)
		}
	}
}
