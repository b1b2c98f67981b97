package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcpanel/craftd/internal/event"
)

func waitRoomSize(t *testing.T, h *Hub, serverID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.RoomSize(serverID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %s size = %d, want %d", serverID, h.RoomSize(serverID), want)
}

func TestHub_RoomMembership(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	a := h.NewClient("alpha", nil)
	b := h.NewClient("alpha", nil)
	other := h.NewClient("bravo", nil)

	h.Register <- a
	h.Register <- b
	h.Register <- other
	waitRoomSize(t, h, "alpha", 2)
	waitRoomSize(t, h, "bravo", 1)

	h.Unregister <- a
	waitRoomSize(t, h, "alpha", 1)
	if _, ok := <-a.Send; ok {
		t.Fatalf("send channel not closed on unregister")
	}

	// double unregister must be harmless
	h.Unregister <- a
	waitRoomSize(t, h, "alpha", 1)

	h.Unregister <- b
	h.Unregister <- other
	waitRoomSize(t, h, "alpha", 0)
	waitRoomSize(t, h, "bravo", 0)
}

func TestHub_FanOutIsRoomScoped(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	alpha := h.NewClient("alpha", nil)
	bravo := h.NewClient("bravo", nil)
	h.Register <- alpha
	h.Register <- bravo
	waitRoomSize(t, h, "alpha", 1)
	waitRoomSize(t, h, "bravo", 1)

	ev := event.Started()
	ev.ServerID = "alpha"
	h.Publish(ev)

	select {
	case got := <-alpha.Send:
		if got.Type != event.TypeStarted || got.ServerID != "alpha" {
			t.Fatalf("wrong event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event never delivered to alpha room")
	}

	select {
	case got := <-bravo.Send:
		t.Fatalf("event leaked into bravo room: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}

	h.Unregister <- alpha
	h.Unregister <- bravo
	waitRoomSize(t, h, "alpha", 0)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	// no Run goroutine: the event channel fills and further publishes drop
	h := NewHub(nil)
	for i := 0; i < 1000; i++ {
		h.Publish(event.Started())
	}
}

func TestClient_WritePumpDeliversJSON(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := h.NewClient("alpha", conn)
		h.Register <- c
		go c.WritePump()
		c.ReadPump()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	waitRoomSize(t, h, "alpha", 1)

	ev := event.PlayerJoined("Alice")
	ev.ServerID = "alpha"
	h.Publish(ev)

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got event.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	if got.Type != event.TypePlayerJoined || got.Player != "Alice" || got.ServerID != "alpha" {
		t.Fatalf("event = %+v", got)
	}
}
