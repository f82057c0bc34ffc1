package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"upstox-chainwatch/internal/models"
)

// snapSource is a swappable SnapshotSource.
type snapSource struct {
	mu   sync.Mutex
	snap *models.MarketSnapshot
}

func (s *snapSource) Latest() *models.MarketSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *snapSource) set(snap *models.MarketSnapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func snapWith(ts string, negCount int) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Timestamp: ts,
		Summary:   models.Summary{NegativeCount: negCount},
	}
}

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSubscriberReceivesSnapshotOnConnect(t *testing.T) {
	source := &snapSource{}
	source.set(snapWith("10:15:00", 1))
	hub := NewHub(HubConfig{PollInterval: 10 * time.Millisecond}, source, zerolog.Nop())
	defer hub.Close()

	conn := dialTestHub(t, hub)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var got models.MarketSnapshot
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Timestamp != "10:15:00" || got.Summary.NegativeCount != 1 {
		t.Errorf("received %+v", got)
	}
}

func TestUnchangedSnapshotIsNotResent(t *testing.T) {
	source := &snapSource{}
	source.set(snapWith("10:15:00", 1))
	hub := NewHub(HubConfig{PollInterval: 10 * time.Millisecond}, source, zerolog.Nop())
	defer hub.Close()

	conn := dialTestHub(t, hub)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first models.MarketSnapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("first read: %v", err)
	}

	// Re-publish an identical snapshot under a new timestamp. Only a real
	// data change may trigger a second push.
	source.set(snapWith("10:15:05", 1))
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var second models.MarketSnapshot
	if err := conn.ReadJSON(&second); err == nil {
		t.Fatalf("identical data was re-broadcast: %+v", second)
	}

	// A changed summary goes out.
	source.set(snapWith("10:15:10", 2))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("changed snapshot not delivered: %v", err)
	}
	if second.Summary.NegativeCount != 2 {
		t.Errorf("received %+v", second)
	}
}

func TestDisconnectRemovesSubscriber(t *testing.T) {
	source := &snapSource{}
	hub := NewHub(HubConfig{PollInterval: 10 * time.Millisecond}, source, zerolog.Nop())
	defer hub.Close()

	conn := dialTestHub(t, hub)
	waitFor(t, func() bool { return hub.SubscriberCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.SubscriberCount() == 0 })
}

func TestHealthEndpoint(t *testing.T) {
	source := &snapSource{}
	hub := NewHub(DefaultHubConfig(), source, zerolog.Nop())
	defer hub.Close()
	srv := NewServer(ServerConfig{Addr: ":0"}, hub, fixedStats(42), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["quotes_cached"] != float64(42) {
		t.Errorf("quotes_cached = %v", body["quotes_cached"])
	}
}

func TestIndexPlaceholder(t *testing.T) {
	source := &snapSource{}
	hub := NewHub(DefaultHubConfig(), source, zerolog.Nop())
	defer hub.Close()
	srv := NewServer(ServerConfig{Addr: ":0"}, hub, fixedStats(0), zerolog.Nop())

	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/ws") {
		t.Errorf("placeholder page missing, code %d body %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path should 404, got %d", rec.Code)
	}
}

// fixedStats satisfies Stats with a constant.
type fixedStats int

func (f fixedStats) QuoteCount() int { return int(f) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
