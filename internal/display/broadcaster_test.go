package display_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/minutewire/minutewire/internal/display"
)

// wsURL converts an httptest server HTTP URL to a WebSocket URL.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) display.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev display.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return ev
}

func waitForSubscriber(t *testing.T, b *display.Broadcaster) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for b.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcaster_DeliversLiveText(t *testing.T) {
	t.Parallel()

	b := display.NewBroadcaster()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	waitForSubscriber(t, b)

	b.Broadcast(display.Event{Type: display.EventLiveText, LiveText: "hello from the meeting"})

	ev := readEvent(t, conn)
	if ev.Type != display.EventLiveText {
		t.Errorf("event type = %q, want live_text", ev.Type)
	}
	if ev.LiveText != "hello from the meeting" {
		t.Errorf("live text = %q", ev.LiveText)
	}
}

func TestBroadcaster_FansOutToAllSubscribers(t *testing.T) {
	t.Parallel()

	b := display.NewBroadcaster()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	first := dial(t, srv)
	second := dial(t, srv)
	deadline := time.Now().Add(3 * time.Second)
	for b.SubscriberCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want 2", b.SubscriberCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.Broadcast(display.Event{Type: display.EventLiveText, LiveText: "shared"})

	for i, conn := range []*websocket.Conn{first, second} {
		if ev := readEvent(t, conn); ev.LiveText != "shared" {
			t.Errorf("subscriber %d live text = %q, want shared", i, ev.LiveText)
		}
	}
}

func TestBroadcaster_NoSubscribersIsNoOp(t *testing.T) {
	t.Parallel()

	b := display.NewBroadcaster()
	// Must not block or panic.
	b.Broadcast(display.Event{Type: display.EventLiveText, LiveText: "nobody listening"})
	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", got)
	}
}
