package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// drain collects whatever is queued on ch after a short settle period.
func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func countKind(frames []string, kind string) int {
	n := 0
	for _, f := range frames {
		if strings.Contains(f, "event: "+kind+"\n") {
			n++
		}
	}
	return n
}

func TestClientCount(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()

	a := b.Subscribe()
	c := b.Subscribe()
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("clients = %d, want 2", n)
	}
	b.Unsubscribe(a)
	b.Unsubscribe(a)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d after unsubscribe, want 1", n)
	}
	if _, ok := <-a; ok {
		t.Error("unsubscribed channel should be closed")
	}
	b.Unsubscribe(c)
}

func TestFrameFormat(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishView(ViewEvent{State: "document_displayed", Seq: 7, Folder: "a", Document: "SKILL.md", Checksum: "abc"})

	frames := drain(ch)
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}
	f := frames[0]
	if !strings.HasPrefix(f, "id: 7\nevent: view.updated\ndata: {") || !strings.HasSuffix(f, "}\n\n") {
		t.Errorf("unexpected frame %q", f)
	}
	for _, want := range []string{`"state":"document_displayed"`, `"seq":7`, `"folder":"a"`, `"document":"SKILL.md"`, `"checksum":"abc"`} {
		if !strings.Contains(f, want) {
			t.Errorf("missing %s in %q", want, f)
		}
	}
}

func TestLoadingThrottle(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishView(ViewEvent{State: "document_loading", Seq: 1})
	b.PublishView(ViewEvent{State: "document_loading", Seq: 2})
	b.PublishView(ViewEvent{State: "document_displayed", Seq: 2})
	b.PublishView(ViewEvent{State: "document_loading", Seq: 3})
	b.PublishView(ViewEvent{State: "load_failed", Seq: 3})

	frames := drain(ch)
	if n := countKind(frames, EventViewLoading); n != 1 {
		t.Errorf("loading frames = %d, want 1", n)
	}
	if n := countKind(frames, EventViewUpdated); n != 2 {
		t.Errorf("updated frames = %d, want 2", n)
	}
}

func TestLateSubscriberGetsLatest(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()

	early := b.Subscribe()
	b.PublishView(ViewEvent{State: "document_displayed", Seq: 1, Folder: "a"})
	b.PublishView(ViewEvent{State: "load_failed", Seq: 2, Folder: "b"})
	b.PublishView(ViewEvent{State: "document_loading", Seq: 3, Folder: "c"})
	drain(early)

	late := b.Subscribe()
	defer b.Unsubscribe(late)

	frames := drain(late)
	if len(frames) != 1 {
		t.Fatalf("late frames = %v, want only the latest completed view", frames)
	}
	if !strings.HasPrefix(frames[0], "id: 2\nevent: view.updated") {
		t.Errorf("replayed frame = %q", frames[0])
	}
}

func TestNoReplayBeforeFirstCompletion(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()

	b.PublishView(ViewEvent{State: "document_loading", Seq: 1})
	time.Sleep(20 * time.Millisecond)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	if frames := drain(ch); len(frames) != 0 {
		t.Errorf("frames = %v, want none", frames)
	}
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	slow := b.Subscribe()
	defer b.Unsubscribe(slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*2; i++ {
			b.PublishView(ViewEvent{State: "document_displayed", Seq: uint64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a full client")
	}
	if n := b.ClientCount(); n != 1 {
		t.Errorf("clients = %d, want 1", n)
	}
}

func TestServeHTTP(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.PublishView(ViewEvent{State: "document_displayed", Seq: 4, Folder: "x"})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := w.Body.String(); !strings.Contains(body, "id: 4\nevent: view.updated") {
		t.Errorf("stream missing event: %q", body)
	}

	time.Sleep(20 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients = %d after disconnect, want 0", n)
	}
}

func TestServeHTTP_EndsOnClose(t *testing.T) {
	b := NewBroker(time.Millisecond)
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	w := httptest.NewRecorder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.ServeHTTP(w, req)
	}()
	for b.ClientCount() != 1 {
		time.Sleep(5 * time.Millisecond)
	}

	b.Close()
	wg.Wait()
}

func TestClose(t *testing.T) {
	b := NewBroker(time.Millisecond)
	ch := b.Subscribe()

	b.Close()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("subscriber channel should be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients = %d after close", n)
	}
	b.PublishView(ViewEvent{State: "document_displayed"})
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribing after close should return a closed channel")
	}
}

func TestSubscribeFrom_ReplaysOnlyWhenBehind(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()

	b.PublishView(ViewEvent{State: "document_displayed", Seq: 3, Folder: "x"})
	time.Sleep(20 * time.Millisecond)

	tests := []struct {
		name   string
		cursor *Cursor
		replay bool
	}{
		{"no cursor", nil, true},
		{"older page", &Cursor{Seq: 2}, true},
		{"same seq settled", &Cursor{Seq: 3}, false},
		{"same seq still loading", &Cursor{Seq: 3, Pending: true}, true},
		{"newer page", &Cursor{Seq: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := b.SubscribeFrom(tt.cursor)
			defer b.Unsubscribe(ch)
			got := countKind(drain(ch), EventViewUpdated) == 1
			if got != tt.replay {
				t.Errorf("replayed = %v, want %v", got, tt.replay)
			}
		})
	}
}

func TestServeHTTP_SinceSkipsCurrentView(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()

	b.PublishView(ViewEvent{State: "document_displayed", Seq: 5, Folder: "x"})
	time.Sleep(20 * time.Millisecond)

	stream := func(target string) string {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
		w := httptest.NewRecorder()
		b.ServeHTTP(w, req)
		return w.Body.String()
	}

	if body := stream("/api/events?since=5"); strings.Contains(body, "event: view.updated") {
		t.Errorf("settled page got replay: %q", body)
	}
	if body := stream("/api/events?since=5&pending=1"); !strings.Contains(body, "id: 5\nevent: view.updated") {
		t.Errorf("loading page missed completion: %q", body)
	}
	if body := stream("/api/events?since=bogus"); !strings.Contains(body, "id: 5\nevent: view.updated") {
		t.Errorf("invalid since should replay: %q", body)
	}
}
