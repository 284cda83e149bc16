package broadcast

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHub_DeliversEvents(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("listener never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Emit(EventGameStarted, map[string]string{"sessionId": "abc"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var env struct {
		Event   string            `json:"event"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("invalid frame: %v", err)
	}
	if env.Event != EventGameStarted || env.Payload["sessionId"] != "abc" {
		t.Errorf("unexpected frame: %s", data)
	}
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://overlay.example"})
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := map[string][]string{"Origin": {"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("expected handshake to fail for a foreign origin")
	}
}

func TestFanout(t *testing.T) {
	var got []string
	record := EmitterFunc(func(event string, _ interface{}) { got = append(got, event) })

	Fanout{record, nil, Nop{}, record}.Emit(EventGameEnded, nil)

	if len(got) != 2 {
		t.Errorf("expected 2 deliveries, got %d", len(got))
	}
}
