package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ZehenForever/dpsboard/internal/feed"
	"github.com/ZehenForever/dpsboard/internal/model"
)

func duelSnapshot() *model.Snapshot {
	s := model.NewEmptySnapshot()
	s.HitTime[0] = model.HitWindow{Start: 0, End: 4}
	s.Damage[11] = map[int64]map[string]model.SkillStat{0: {"": {All: model.HitStat{TotalDamage: 800}}}}
	s.Users[11] = model.UserInfo{Job: "Striker"}
	return s
}

func newTestFeed(t *testing.T, snap *model.Snapshot, interval time.Duration) (*Server, *Replay, string) {
	t.Helper()
	replay, err := NewReplay()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if snap != nil {
		if err := replay.Load(snap); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	srv := NewServer(replay, interval)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.BroadcastLoop(ctx)

	return srv, replay, "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
}

func readFrame(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, b, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestWS_InitialFrameAndPing(t *testing.T) {
	_, _, wsURL := newTestFeed(t, duelSnapshot(), time.Hour)

	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	msg, err := feed.Decode([]byte(readFrame(t, c)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != feed.TypeDamage || msg.Snapshot.Job(11) != "Striker" {
		t.Fatalf("msg=%+v", msg)
	}

	if err := c.WriteMessage(websocket.TextMessage, []byte(feed.PingCommand)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readFrame(t, c); got != feed.PongReply {
		t.Fatalf("reply=%q want=%q", got, feed.PongReply)
	}
}

func TestWS_ClearEmptiesReplay(t *testing.T) {
	_, replay, wsURL := newTestFeed(t, duelSnapshot(), time.Hour)

	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = readFrame(t, c)

	if err := c.WriteMessage(websocket.TextMessage, []byte(feed.ClearCommand)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(readFrame(t, c)), &env); err != nil || env.Type != feed.TypeClearConfirmed {
		t.Fatalf("type=%q err=%v", env.Type, err)
	}

	msg, err := feed.Decode(replay.Frame())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Snapshot.HasDamage() {
		t.Fatalf("replay still carries damage after clear")
	}
	if _, cleared := replay.Stats(); cleared != 1 {
		t.Fatalf("cleared=%d want=1", cleared)
	}
}

func TestSubscriber_ReceivesBroadcastAndClears(t *testing.T) {
	_, replay, wsURL := newTestFeed(t, duelSnapshot(), 20*time.Millisecond)

	var mu sync.Mutex
	var got []*model.Snapshot
	sub := feed.NewSubscriber(feed.SinkFunc(func(s *model.Snapshot) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	}))
	confirmed := make(chan struct{}, 1)
	sub.OnClearConfirmed(func(time.Time) {
		select {
		case confirmed <- struct{}{}:
		default:
		}
	})
	if err := sub.Configure(feed.Config{URL: wsURL}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := sub.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sub.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshots=%d want>=2", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	first := got[0]
	mu.Unlock()
	if first.Damage.Stat(11, 0, "").All.TotalDamage != 800 {
		t.Fatalf("first snapshot=%+v", first.Damage)
	}

	if err := sub.SendClear(); err != nil {
		t.Fatalf("send clear: %v", err)
	}
	select {
	case <-confirmed:
	case <-time.After(3 * time.Second):
		t.Fatalf("clear not confirmed")
	}
	if _, cleared := replay.Stats(); cleared != 1 {
		t.Fatalf("cleared=%d want=1", cleared)
	}
}

func TestReplay_PushSkipsNonDamage(t *testing.T) {
	replay, err := NewReplay()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Push([]byte(`not json`)) {
		t.Fatalf("accepted garbage")
	}
	if replay.Push([]byte(`{"type":"clear_confirmed","timestamp":1}`)) {
		t.Fatalf("accepted non-damage frame")
	}
	b, _ := feed.EncodeDamage(duelSnapshot())
	if !replay.Push(b) {
		t.Fatalf("rejected damage frame")
	}
	if frames, _ := replay.Stats(); frames != 1 {
		t.Fatalf("frames=%d want=1", frames)
	}
}

func TestFollowCapture_AdvancesReplay(t *testing.T) {
	p := filepath.Join(t.TempDir(), "frames.jsonl")
	b, _ := feed.EncodeDamage(duelSnapshot())
	if err := os.WriteFile(p, append(b, '\n'), 0o600); err != nil {
		t.Fatal(err)
	}
	replay, _ := NewReplay()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- FollowCapture(ctx, replay, p, false) }()

	deadline := time.Now().Add(3 * time.Second)
	for {
		if frames, _ := replay.Stats(); frames == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("capture frame not replayed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("follow err=%v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestFeed(t, nil, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"subscribers":0`) {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
}
