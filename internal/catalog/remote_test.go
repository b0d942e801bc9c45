package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewRemoteSource_Defaults(t *testing.T) {
	source := NewRemoteSource(RemoteOptions{})

	if source.baseURL != DefaultRemoteBaseURL {
		t.Errorf("Expected default base URL, got %s", source.baseURL)
	}
	if source.httpClient.Timeout != requestTimeout {
		t.Errorf("Expected timeout %v, got %v", requestTimeout, source.httpClient.Timeout)
	}
	if source.rateLimiter == nil {
		t.Error("rateLimiter is nil")
	}
}

func TestRemoteSource_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/dist/cards.json":
			_, _ = w.Write([]byte(`[
				{"set":"A1","number":94,"label":{"eng":"Pikachu"}},
				{"set":"A1","number":"36","label":{"en":"Charizard ex"}},
				{"set":"P-A","number":1,"label":{"eng":"Potion"}},
				{"set":"","number":2,"label":{"eng":"No Set"}},
				{"set":"A1","number":3,"label":{"fr":"Sans nom"}}
			]`))
		case "/dist/sets.json":
			_, _ = w.Write([]byte(`[{"code":"A1","label":{"eng":"Genetic Apex"}}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	source := NewRemoteSource(RemoteOptions{BaseURL: server.URL + "/dist/", RateLimit: time.Millisecond})
	cards, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []Card{
		{ID: "a1-094", Name: "Pikachu", Set: "Genetic Apex (A1)"},
		{ID: "a1-036", Name: "Charizard ex", Set: "Genetic Apex (A1)"},
		{ID: "p-a-001", Name: "Potion", Set: "P-A (P-A)"},
	}
	if len(cards) != len(want) {
		t.Fatalf("Expected %d cards, got %d: %+v", len(want), len(cards), cards)
	}
	for i := range want {
		if cards[i] != want[i] {
			t.Errorf("Card %d: expected %+v, got %+v", i, want[i], cards[i])
		}
	}
}

func TestRemoteSource_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	source := NewRemoteSource(RemoteOptions{BaseURL: server.URL, RateLimit: time.Millisecond})
	if _, err := source.Load(context.Background()); err == nil {
		t.Fatal("Expected error for HTTP 403")
	}
}

func TestRemoteSource_CancelledContext(t *testing.T) {
	source := NewRemoteSource(RemoteOptions{BaseURL: "http://127.0.0.1:1", RateLimit: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := source.Load(ctx); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}
