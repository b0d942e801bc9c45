package metrics

import (
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ramonehamilton/TCG-Companion/internal/decks"
)

// ServerMetrics tracks request outcomes and deck changes for the API server.
// All methods are safe for concurrent use.
type ServerMetrics struct {
	RequestLatency *Histogram

	Requests     atomic.Uint64
	ClientErrors atomic.Uint64 // 4xx responses
	ServerErrors atomic.Uint64 // 5xx responses

	DecksCreated    atomic.Uint64
	DecksUpdated    atomic.Uint64
	DecksDeleted    atomic.Uint64
	BattlesRecorded atomic.Uint64

	startTime time.Time
	now       func() time.Time
}

// NewServerMetrics creates a collector whose uptime starts now.
func NewServerMetrics() *ServerMetrics {
	return newServerMetrics(time.Now)
}

func newServerMetrics(now func() time.Time) *ServerMetrics {
	return &ServerMetrics{
		RequestLatency: NewHistogram(defaultMaxSamples),
		startTime:      now(),
		now:            now,
	}
}

// RecordRequest counts one served request with its status and duration.
func (m *ServerMetrics) RecordRequest(status int, d time.Duration) {
	m.Requests.Add(1)
	m.RequestLatency.Record(d)
	switch {
	case status >= 500:
		m.ServerErrors.Add(1)
	case status >= 400:
		m.ClientErrors.Add(1)
	}
}

// ObserveDeckEvent counts a deck change. It has the signature of the deck
// service's change callback.
func (m *ServerMetrics) ObserveDeckEvent(event decks.DeckEvent) {
	switch event.Type {
	case decks.EventDeckCreated:
		m.DecksCreated.Add(1)
	case decks.EventDeckUpdated:
		m.DecksUpdated.Add(1)
	case decks.EventDeckDeleted:
		m.DecksDeleted.Add(1)
	case decks.EventBattleRecorded:
		m.BattlesRecorded.Add(1)
	}
}

// Middleware records every request passing through it.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := m.now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RecordRequest(status, m.now().Sub(start))
	})
}

// Stats is a point-in-time snapshot of the collected metrics.
type Stats struct {
	RequestLatency LatencyStats `json:"request_latency"`

	Requests     uint64  `json:"requests"`
	ClientErrors uint64  `json:"client_errors"`
	ServerErrors uint64  `json:"server_errors"`
	SuccessRate  float64 `json:"success_rate"` // percentage of requests without a 5xx

	DecksCreated    uint64 `json:"decks_created"`
	DecksUpdated    uint64 `json:"decks_updated"`
	DecksDeleted    uint64 `json:"decks_deleted"`
	BattlesRecorded uint64 `json:"battles_recorded"`

	Uptime string `json:"uptime"`
}

// GetStats returns a snapshot of the current statistics.
func (m *ServerMetrics) GetStats() *Stats {
	requests := m.Requests.Load()
	serverErrors := m.ServerErrors.Load()

	successRate := 0.0
	if requests > 0 {
		successRate = math.Round(float64(requests-serverErrors)/float64(requests)*10000) / 100
	}

	return &Stats{
		RequestLatency:  m.RequestLatency.Stats(),
		Requests:        requests,
		ClientErrors:    m.ClientErrors.Load(),
		ServerErrors:    serverErrors,
		SuccessRate:     successRate,
		DecksCreated:    m.DecksCreated.Load(),
		DecksUpdated:    m.DecksUpdated.Load(),
		DecksDeleted:    m.DecksDeleted.Load(),
		BattlesRecorded: m.BattlesRecorded.Load(),
		Uptime:          m.now().Sub(m.startTime).Round(time.Second).String(),
	}
}
