// Package sse implements a Server-Sent Events broker that tells open pages
// when the displayed document changed.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// loadingState matches viewer.DocumentLoading's text form.
const loadingState = "document_loading"

// Event types.
const (
	EventViewLoading = "view.loading"
	EventViewUpdated = "view.updated"
)

// clientBuffer is the number of frames queued per client before frames are
// dropped for it.
const clientBuffer = 64

// heartbeatInterval spaces the comment lines that keep idle streams open
// through proxies.
var heartbeatInterval = 30 * time.Second

// ViewEvent summarizes a viewer state change.
type ViewEvent struct {
	State    string `json:"state"`
	Seq      uint64 `json:"seq"`
	Folder   string `json:"folder"`
	Document string `json:"document"`
	Checksum string `json:"checksum,omitempty"`
}

// frame encodes ev as one SSE message. The sequence number doubles as the
// event id.
func frame(kind string, ev ViewEvent) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, kind, payload)), nil
}

// Cursor is what a subscriber has already seen: the sequence number of the
// view it rendered and whether that view was still loading.
type Cursor struct {
	Seq     uint64
	Pending bool
}

// behind reports whether a completed frame with seq is news to the cursor.
func (c *Cursor) behind(seq uint64) bool {
	if c == nil {
		return true
	}
	return seq > c.Seq || (seq == c.Seq && c.Pending)
}

type join struct {
	ch     chan []byte
	cursor *Cursor
}

// Broker fans viewer events out to connected streams.
//
// One goroutine owns the client set, the loading throttle and the last
// completed frame. New clients receive that frame first, unless their
// cursor shows they already rendered it, so a page opened while a load was
// finishing still learns about it.
type Broker struct {
	loadingMin time.Duration

	joinCh  chan join
	leaveCh chan chan []byte
	viewCh  chan ViewEvent
	countCh chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. Loading notifications are sent at most once
// per loadingThrottle; completed loads are always sent.
func NewBroker(loadingThrottle time.Duration) *Broker {
	if loadingThrottle <= 0 {
		loadingThrottle = 250 * time.Millisecond
	}

	b := &Broker{
		loadingMin: loadingThrottle,
		joinCh:     make(chan join),
		leaveCh:    make(chan chan []byte),
		viewCh:     make(chan ViewEvent, 256),
		countCh:    make(chan chan int),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}

	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastLoading time.Time
		latest      []byte
		latestSeq   uint64
	)

	send := func(ch chan []byte, msg []byte) {
		select {
		case ch <- msg:
		default:
			// Slow client; it will catch up on the next completed load.
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case j := <-b.joinCh:
			clients[j.ch] = struct{}{}
			if latest != nil && j.cursor.behind(latestSeq) {
				send(j.ch, latest)
			}

		case ch := <-b.leaveCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.viewCh:
			kind := EventViewUpdated
			if ev.State == loadingState {
				now := time.Now()
				if now.Sub(lastLoading) < b.loadingMin {
					continue
				}
				lastLoading = now
				kind = EventViewLoading
			}
			msg, err := frame(kind, ev)
			if err != nil {
				continue
			}
			if kind == EventViewUpdated {
				latest = msg
				latestSeq = ev.Seq
			}
			for ch := range clients {
				send(ch, msg)
			}

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and closes every client channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client that receives the last completed frame
// first. The returned channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom(nil)
}

// SubscribeFrom registers a client and replays the last completed frame only
// when the cursor is behind it. A nil cursor always gets the replay.
func (b *Broker) SubscribeFrom(cursor *Cursor) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.joinCh <- join{ch: ch, cursor: cursor}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaveCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishView queues a viewer state change. Events in the loading state
// are throttled. Publishing after Close is a no-op.
func (b *Broker) PublishView(ev ViewEvent) {
	if b.closed.Load() {
		return
	}
	select {
	case b.viewCh <- ev:
	case <-b.stopped:
	}
}

// cursorFrom reads ?since=<seq>&pending=1. Without since there is no cursor.
func cursorFrom(r *http.Request) *Cursor {
	q := r.URL.Query()
	seq, err := strconv.ParseUint(q.Get("since"), 10, 64)
	if err != nil {
		return nil
	}
	return &Cursor{Seq: seq, Pending: q.Get("pending") == "1"}
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeFrom(cursorFrom(r))
	defer b.Unsubscribe(ch)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
