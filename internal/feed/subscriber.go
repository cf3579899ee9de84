package feed

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ZehenForever/dpsboard/internal/model"
)

const (
	DefaultURL       = "ws://127.0.0.1:8080"
	DefaultPingEvery = 20 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 10 * time.Second
)

var ErrNotConnected = errors.New("feed: not connected")

// Sink receives decoded snapshots on the subscriber's read goroutine.
type Sink interface {
	ApplySnapshot(snap *model.Snapshot)
}

type SinkFunc func(snap *model.Snapshot)

func (f SinkFunc) ApplySnapshot(snap *model.Snapshot) { f(snap) }

// Recorder stores raw inbound frames.
type Recorder interface {
	Record(frame []byte) error
}

type Config struct {
	URL       string
	PingEvery time.Duration
	Recorder  Recorder
}

type Status struct {
	Enabled     bool          `json:"enabled"`
	Connected   bool          `json:"connected"`
	LastError   string        `json:"lastError,omitempty"`
	URL         string        `json:"url"`
	ReconnectIn time.Duration `json:"reconnectIn"`
	Received    int64         `json:"received"`
	Dropped     int64         `json:"dropped"`
}

type subscriberState struct {
	enabled   bool
	connected bool
	lastError string
	received  int64
	dropped   int64
}

// Subscriber keeps a websocket to the feed open, reconnecting with jittered
// exponential backoff, and forwards snapshots to a Sink.
type Subscriber struct {
	mu sync.Mutex

	cfg Config
	st  subscriberState

	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}

	conn        *websocket.Conn
	writeMu     sync.Mutex
	reconnectAt time.Time

	sink      Sink
	onConfirm func(at time.Time)
}

func NewSubscriber(sink Sink) *Subscriber {
	return &Subscriber{cfg: Config{URL: DefaultURL, PingEvery: DefaultPingEvery}, sink: sink}
}

func (s *Subscriber) Configure(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if _, err := buildWSURL(cfg.URL); err != nil {
		return err
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.PingEvery <= 0 {
		cfg.PingEvery = DefaultPingEvery
	}

	s.cfg = cfg
	return nil
}

// OnClearConfirmed registers a callback for the feed's acknowledgement of a clear.
func (s *Subscriber) OnClearConfirmed(fn func(at time.Time)) {
	s.mu.Lock()
	s.onConfirm = fn
	s.mu.Unlock()
}

func (s *Subscriber) Status() Status {
	s.mu.Lock()
	st := s.st
	u := s.cfg.URL
	reconnectAt := s.reconnectAt
	s.mu.Unlock()

	var in time.Duration
	if st.enabled && !st.connected && !reconnectAt.IsZero() {
		in = time.Until(reconnectAt)
		if in < 0 {
			in = 0
		}
	}
	return Status{
		Enabled:     st.enabled,
		Connected:   st.connected,
		LastError:   st.lastError,
		URL:         u,
		ReconnectIn: in,
		Received:    st.received,
		Dropped:     st.dropped,
	}
}

func (s *Subscriber) Start() error {
	s.mu.Lock()
	if s.sink == nil {
		s.mu.Unlock()
		return errors.New("feed: sink required")
	}
	// Each Start forces a fresh attempt.
	s.gen++
	gen := s.gen
	prevCancel := s.cancel
	prevConn := s.conn
	ctx, cancel := context.WithCancel(context.Background())
	s.ctx = ctx
	s.cancel = cancel
	done := make(chan struct{})
	s.doneCh = done
	s.conn = nil
	s.reconnectAt = time.Time{}
	s.st.enabled = true
	s.st.connected = false
	s.st.lastError = ""
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}
	if prevConn != nil {
		_ = prevConn.Close()
	}

	go s.manageLoop(gen, done)
	return nil
}

func (s *Subscriber) Stop() error {
	s.mu.Lock()
	if !s.st.enabled {
		s.mu.Unlock()
		return nil
	}
	prevCancel := s.cancel
	doneCh := s.doneCh
	c := s.conn
	s.cancel = nil
	s.doneCh = nil
	s.conn = nil
	s.reconnectAt = time.Time{}
	s.st.enabled = false
	s.st.connected = false
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}
	if c != nil {
		_ = c.Close()
	}
	if doneCh != nil {
		<-doneCh
	}
	return nil
}

// SendClear asks the feed source to drop its accumulated counters.
func (s *Subscriber) SendClear() error {
	return s.writeText(ClearCommand)
}

func (s *Subscriber) writeText(text string) error {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	return writeConn(&s.writeMu, c, text)
}

func writeConn(mu *sync.Mutex, c *websocket.Conn, text string) error {
	mu.Lock()
	defer mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.WriteMessage(websocket.TextMessage, []byte(text))
}

func (s *Subscriber) manageLoop(gen uint64, done chan struct{}) {
	defer close(done)

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(gen)))

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		ctx := s.ctx
		cfg := s.cfg
		enabled := s.st.enabled
		s.mu.Unlock()
		if !enabled || ctx == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		wsURL, err := buildWSURL(cfg.URL)
		if err != nil {
			s.onDisconnected(gen, "invalid ws url: "+err.Error())
			s.sleepBeforeReconnect(ctx, gen, backoff, rng)
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		c, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.onDisconnected(gen, err.Error())
			s.sleepBeforeReconnect(ctx, gen, backoff, rng)
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		connStart := time.Now()
		s.onConnected(gen, c)

		pingDone := make(chan struct{})
		go s.pingLoop(ctx, c, cfg.PingEvery, pingDone)
		err = s.readLoop(ctx, gen, c, cfg.Recorder)
		close(pingDone)
		_ = c.Close()
		if err != nil && ctx.Err() == nil {
			s.onDisconnected(gen, err.Error())
		} else {
			s.onDisconnected(gen, "")
		}

		if time.Since(connStart) > 10*time.Second {
			backoff = time.Second
		} else {
			backoff = nextBackoff(backoff, maxBackoff)
		}
		if ctx.Err() != nil {
			return
		}
		s.sleepBeforeReconnect(ctx, gen, backoff, rng)
	}
}

func nextBackoff(cur time.Duration, max time.Duration) time.Duration {
	n := cur * 2
	if n > max {
		n = max
	}
	if n < time.Second {
		n = time.Second
	}
	return n
}

func (s *Subscriber) sleepBeforeReconnect(ctx context.Context, gen uint64, backoff time.Duration, rng *rand.Rand) {
	if backoff <= 0 {
		return
	}
	// +/-20% jitter.
	f := 1 + ((rng.Float64()*2 - 1) * 0.2)
	d := time.Duration(float64(backoff) * f)
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	if s.gen == gen && s.st.enabled && !s.st.connected {
		s.reconnectAt = time.Now().Add(d)
		s.logStateChangeLocked("reconnecting")
	}
	s.mu.Unlock()

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Subscriber) onConnected(gen uint64, c *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		_ = c.Close()
		return
	}
	if prev := s.conn; prev != nil {
		_ = prev.Close()
	}
	s.conn = c
	s.reconnectAt = time.Time{}
	wasConnected := s.st.connected
	s.st.connected = true
	s.st.lastError = ""
	if !wasConnected {
		s.logStateChangeLocked("connected")
	}
}

func (s *Subscriber) onDisconnected(gen uint64, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	wasConnected := s.st.connected
	s.st.connected = false
	if errMsg != "" {
		s.st.lastError = errMsg
	}
	s.conn = nil
	if wasConnected || (errMsg != "" && s.st.enabled) {
		s.logStateChangeLocked("disconnected")
	}
}

func (s *Subscriber) logStateChangeLocked(state string) {
	switch state {
	case "connected":
		log.Printf("feed %s: connected", s.cfg.URL)
	case "reconnecting":
		ms := time.Until(s.reconnectAt).Milliseconds()
		if ms < 0 {
			ms = 0
		}
		log.Printf("feed %s: reconnecting in %dms", s.cfg.URL, ms)
	case "disconnected":
		if strings.TrimSpace(s.st.lastError) != "" {
			log.Printf("feed %s: disconnected: %s", s.cfg.URL, s.st.lastError)
			return
		}
		log.Printf("feed %s: disconnected", s.cfg.URL)
	}
}

func (s *Subscriber) pingLoop(ctx context.Context, c *websocket.Conn, every time.Duration, done <-chan struct{}) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-t.C:
			if err := writeConn(&s.writeMu, c, PingCommand); err != nil {
				debugf("feed: ping failed: %v", err)
				return
			}
		}
	}
}

func (s *Subscriber) readLoop(ctx context.Context, gen uint64, c *websocket.Conn, rec Recorder) error {
	_ = c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPongHandler(func(string) error {
		_ = c.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, frame, err := c.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.SetReadDeadline(time.Now().Add(readTimeout))

		s.mu.Lock()
		stale := s.gen != gen
		sink := s.sink
		onConfirm := s.onConfirm
		s.mu.Unlock()
		if stale {
			return nil
		}

		msg, err := Decode(frame)
		if err != nil {
			s.mu.Lock()
			s.st.dropped++
			s.mu.Unlock()
			log.Printf("feed: dropped frame bytes=%d err=%v", len(frame), err)
			continue
		}

		switch msg.Type {
		case TypeDamage:
			if rec != nil {
				if err := rec.Record(frame); err != nil {
					debugf("feed: record failed: %v", err)
				}
			}
			s.mu.Lock()
			s.st.received++
			s.mu.Unlock()
			sink.ApplySnapshot(msg.Snapshot)
		case TypeClearConfirmed:
			debugf("feed: clear confirmed at=%s", msg.At.Format(time.RFC3339))
			if onConfirm != nil {
				onConfirm(msg.At)
			}
		default:
		}
	}
}

func buildWSURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("unsupported scheme")
	}
	if u.Host == "" {
		return "", errors.New("missing host")
	}
	return u.String(), nil
}
