package console

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Aakashjammula/audio-agent/internal/llm"
)

func testState() Snapshot {
	return Snapshot{
		BotSpeaking: true,
		Turns:       2,
		History: []llm.Turn{
			{Role: llm.RoleUser, Text: "hi"},
			{Role: llm.RoleAssistant, Text: "Hello there."},
		},
	}
}

func TestHealthz(t *testing.T) {
	s := New(testState)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestState_ReturnsSnapshot(t *testing.T) {
	s := New(testState)
	r := httptest.NewRequest(http.MethodGet, "/state", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !snap.BotSpeaking || snap.Turns != 2 || len(snap.History) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.History[1].Text != "Hello there." {
		t.Fatalf("history not carried through: %+v", snap.History)
	}
}

func TestState_EmptyHistoryIsArrayNotNull(t *testing.T) {
	s := New(func() Snapshot { return Snapshot{} })
	r := httptest.NewRequest(http.MethodGet, "/state", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	if strings.Contains(w.Body.String(), `"history":null`) {
		t.Fatalf("history should marshal as [], got %s", w.Body.String())
	}
}

func TestLive_ReceivesBroadcast(t *testing.T) {
	s := New(testState)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the subscriber registers during the upgrade; give it a beat
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.clients)
		s.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	s.Broadcast(Event{Kind: "turn", User: "hi", Bot: "Hello there."})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Kind != "turn" || ev.User != "hi" || ev.Bot != "Hello there." {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.At.IsZero() {
		t.Fatalf("event timestamp not stamped")
	}
}

func TestBroadcast_NoClientsIsNoop(t *testing.T) {
	s := New(testState)
	s.Broadcast(Event{Kind: "transcript", User: "nobody listening"})
}
