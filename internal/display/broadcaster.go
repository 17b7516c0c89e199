// Package display pushes live session output to attached renderers over
// WebSocket.
//
// The core never renders anything itself: a Broadcaster fans out the growing
// live-merge string, finalized diarized utterances, and freshly generated
// intelligence reports as JSON text frames, and whatever is connected on the
// other end decides how to draw them. Slow subscribers lose frames rather
// than back-pressuring the session.
package display

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/minutewire/minutewire/internal/intel"
	"github.com/minutewire/minutewire/internal/meeting"
)

// EventType tags a display event.
type EventType string

const (
	// EventLiveText carries the current live-merge display string.
	EventLiveText EventType = "live_text"

	// EventUtterance carries one finalized, diarized utterance.
	EventUtterance EventType = "utterance"

	// EventReport carries a freshly generated intelligence report.
	EventReport EventType = "report"
)

// Event is one display update. Exactly one payload field is set, matching
// Type.
type Event struct {
	Type      EventType          `json:"type"`
	LiveText  string             `json:"liveText,omitempty"`
	Utterance *meeting.Utterance `json:"utterance,omitempty"`
	Report    *intel.Report      `json:"report,omitempty"`
}

// subscriber buffers outbound frames for one attached renderer.
const subscriberBuffer = 32

type subscriber struct {
	frames chan []byte
}

// Broadcaster fans display events out to all attached WebSocket renderers.
// Safe for concurrent use.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*subscriber]struct{})}
}

// Broadcast marshals the event once and delivers it to every subscriber.
// Subscribers whose buffers are full skip this frame.
func (b *Broadcaster) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("display: marshal event", "type", ev.Type, "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.frames <- data:
		default:
			// Renderer is not keeping up; the next event supersedes this one
			// anyway for live text.
		}
	}
}

// SubscriberCount returns the number of attached renderers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) add(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub] = struct{}{}
}

func (b *Broadcaster) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// ServeHTTP upgrades the request to a WebSocket session and streams display
// events until the client disconnects. Implements http.Handler.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("display: websocket accept failed", "error", err)
		return
	}

	sub := &subscriber{frames: make(chan []byte, subscriberBuffer)}
	b.add(sub)
	defer b.remove(sub)

	// CloseRead discards inbound frames (the feed is one-way) and gives us a
	// context that ends when the client goes away.
	ctx := conn.CloseRead(r.Context())
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-sub.frames:
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				slog.Debug("display: subscriber write failed", "error", err)
				return
			}
		}
	}
}
