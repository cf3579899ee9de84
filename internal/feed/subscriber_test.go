package feed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ZehenForever/dpsboard/internal/model"
)

type fakeFeed struct {
	upgrader websocket.Upgrader
	frames   []string

	mu       sync.Mutex
	received []string
	conns    int
}

func (f *fakeFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()
	f.mu.Lock()
	f.conns++
	f.mu.Unlock()

	for _, fr := range f.frames {
		if err := c.WriteMessage(websocket.TextMessage, []byte(fr)); err != nil {
			return
		}
	}
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.received = append(f.received, string(data))
		f.mu.Unlock()
		switch string(data) {
		case ClearCommand:
			b, _ := EncodeClearConfirmed(time.Now())
			_ = c.WriteMessage(websocket.TextMessage, b)
		case PingCommand:
			_ = c.WriteMessage(websocket.TextMessage, []byte(PongReply))
		}
	}
}

func (f *fakeFeed) got() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

type memRecorder struct {
	mu     sync.Mutex
	frames int
}

func (m *memRecorder) Record([]byte) error {
	m.mu.Lock()
	m.frames++
	m.mu.Unlock()
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestSubscriber_DeliversSnapshotsAndDropsMalformed(t *testing.T) {
	feed := &fakeFeed{frames: []string{
		`{"type":"damage","data":{"damage":{"1":{"0":{"":{"all":{"total_damage":10}}}}}}}`,
		`{"type":"damage","data":`,
		`{"type":"damage","data":{"damage":{"1":{"0":{"":{"all":{"total_damage":20}}}}}}}`,
	}}
	server := httptest.NewServer(feed)
	defer server.Close()

	var mu sync.Mutex
	var got []int64
	sub := NewSubscriber(SinkFunc(func(s *model.Snapshot) {
		mu.Lock()
		got = append(got, s.Damage.Stat(1, 0, "").All.TotalDamage)
		mu.Unlock()
	}))
	rec := &memRecorder{}
	if err := sub.Configure(Config{URL: server.URL, Recorder: rec}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := sub.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sub.Stop()

	waitFor(t, "two snapshots", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})
	mu.Lock()
	if got[0] != 10 || got[1] != 20 {
		t.Fatalf("damage=%v want=[10 20]", got)
	}
	mu.Unlock()

	st := sub.Status()
	if !st.Connected || st.Received != 2 || st.Dropped != 1 {
		t.Fatalf("status=%+v", st)
	}
	rec.mu.Lock()
	frames := rec.frames
	rec.mu.Unlock()
	if frames != 2 {
		t.Fatalf("recorded=%d want=2", frames)
	}
}

func TestSubscriber_SendClearAndConfirm(t *testing.T) {
	feed := &fakeFeed{}
	server := httptest.NewServer(feed)
	defer server.Close()

	sub := NewSubscriber(SinkFunc(func(*model.Snapshot) {}))
	confirmed := make(chan time.Time, 1)
	sub.OnClearConfirmed(func(at time.Time) { confirmed <- at })

	if err := sub.SendClear(); err != ErrNotConnected {
		t.Fatalf("err=%v want ErrNotConnected", err)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	if err := sub.Configure(Config{URL: wsURL, PingEvery: 20 * time.Millisecond}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := sub.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sub.Stop()

	waitFor(t, "connect", func() bool { return sub.Status().Connected })
	if err := sub.SendClear(); err != nil {
		t.Fatalf("send clear: %v", err)
	}

	select {
	case at := <-confirmed:
		if at.IsZero() {
			t.Fatalf("confirmation without timestamp")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for clear_confirmed")
	}

	waitFor(t, "ping", func() bool {
		for _, m := range feed.got() {
			if m == PingCommand {
				return true
			}
		}
		return false
	})
	if st := sub.Status(); st.Dropped != 0 {
		t.Fatalf("pong counted as dropped: %+v", st)
	}
}

func TestSubscriber_StopIsIdempotent(t *testing.T) {
	sub := NewSubscriber(SinkFunc(func(*model.Snapshot) {}))
	if err := sub.Configure(Config{URL: "ws://127.0.0.1:1"}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := sub.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sub.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := sub.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if st := sub.Status(); st.Enabled || st.Connected {
		t.Fatalf("status after stop=%+v", st)
	}
}

func TestConfigure_RejectsBadScheme(t *testing.T) {
	sub := NewSubscriber(SinkFunc(func(*model.Snapshot) {}))
	if err := sub.Configure(Config{URL: "ftp://example.com"}); err == nil {
		t.Fatalf("ftp url accepted")
	}
	if err := sub.Configure(Config{URL: "https://feed.example.com/"}); err != nil {
		t.Fatalf("https url rejected: %v", err)
	}
	if got, _ := buildWSURL("https://feed.example.com"); got != "wss://feed.example.com" {
		t.Fatalf("ws url=%q", got)
	}
}

func TestNextBackoff(t *testing.T) {
	if got := nextBackoff(time.Second, 30*time.Second); got != 2*time.Second {
		t.Fatalf("backoff=%s want=2s", got)
	}
	if got := nextBackoff(20*time.Second, 30*time.Second); got != 30*time.Second {
		t.Fatalf("backoff=%s want=30s", got)
	}
}
