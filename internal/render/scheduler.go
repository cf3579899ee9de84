package render

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/bep/debounce"

	"github.com/ZehenForever/dpsboard/internal/ranking"
)

const (
	DefaultDebounce    = 200 * time.Millisecond
	DefaultSampleEvery = 5 * time.Second
)

type Options struct {
	Debounce    time.Duration
	SampleEvery time.Duration
	// Callbacks run on timer goroutines; UIs forward them onto their own loop.
	OnRender func()
	OnSample func()
}

// Scheduler coalesces render requests behind a debounce and drives the sampling
// timer. At most one render and one sample are ever pending.
type Scheduler struct {
	mu sync.Mutex

	debounced     func(f func())
	onRender      func()
	renderPending bool

	sampleEvery   time.Duration
	onSample      func()
	sampleTimer   *time.Timer
	samplePending bool
	sampleGen     uint64
	visible       bool

	fingerprint    uint64
	hasFingerprint bool
	stopped        bool
}

func NewScheduler(opts Options) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SampleEvery <= 0 {
		opts.SampleEvery = DefaultSampleEvery
	}
	return &Scheduler{
		debounced:   debounce.New(opts.Debounce),
		onRender:    opts.OnRender,
		sampleEvery: opts.SampleEvery,
		onSample:    opts.OnSample,
	}
}

// SetCallbacks replaces the callbacks. Nil leaves the existing one in place.
func (s *Scheduler) SetCallbacks(onRender, onSample func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if onRender != nil {
		s.onRender = onRender
	}
	if onSample != nil {
		s.onSample = onSample
	}
}

// RequestRender restarts the debounce window, so a burst renders once after it
// goes quiet. It reports whether this call created the pending render.
func (s *Scheduler) RequestRender() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	armed := !s.renderPending
	s.renderPending = true
	s.mu.Unlock()

	s.debounced(s.fireRender)
	return armed
}

func (s *Scheduler) fireRender() {
	s.mu.Lock()
	s.renderPending = false
	cb := s.onRender
	stopped := s.stopped
	s.mu.Unlock()
	if cb != nil && !stopped {
		cb()
	}
}

func (s *Scheduler) RenderPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderPending
}

// ShouldRender compares the ranking's fingerprint with the last rendered one and
// records it. A false result means the visible output would not change.
func (s *Scheduler) ShouldRender(rows []ranking.Row) bool {
	fp := Fingerprint(rows)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasFingerprint && s.fingerprint == fp {
		return false
	}
	s.fingerprint = fp
	s.hasFingerprint = true
	return true
}

// Invalidate forces the next ShouldRender to pass, e.g. after a view switch.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	s.hasFingerprint = false
	s.mu.Unlock()
}

// SetVisible starts or cancels sampling. Hiding drops any pending sample;
// showing again starts a fresh interval with no catch-up.
func (s *Scheduler) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.visible == visible {
		return
	}
	s.visible = visible
	s.sampleGen++
	if s.sampleTimer != nil {
		s.sampleTimer.Stop()
		s.sampleTimer = nil
	}
	s.samplePending = false
	if visible {
		s.armSampleLocked()
	}
}

func (s *Scheduler) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Scheduler) SamplePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samplePending
}

func (s *Scheduler) armSampleLocked() {
	gen := s.sampleGen
	s.samplePending = true
	s.sampleTimer = time.AfterFunc(s.sampleEvery, func() { s.fireSample(gen) })
}

func (s *Scheduler) fireSample(gen uint64) {
	s.mu.Lock()
	if s.stopped || !s.visible || s.sampleGen != gen {
		s.mu.Unlock()
		return
	}
	s.samplePending = false
	cb := s.onSample
	s.mu.Unlock()

	if cb != nil {
		cb()
	}

	s.mu.Lock()
	if !s.stopped && s.visible && s.sampleGen == gen && !s.samplePending {
		s.armSampleLocked()
	}
	s.mu.Unlock()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.sampleGen++
	if s.sampleTimer != nil {
		s.sampleTimer.Stop()
		s.sampleTimer = nil
	}
	s.samplePending = false
	s.renderPending = false
	s.mu.Unlock()
	s.debounced(func() {})
}

// Fingerprint hashes each row's id with damage floored to 100 and dps floored to
// 10, so sub-threshold jitter does not count as a change.
func Fingerprint(rows []ranking.Row) uint64 {
	buf := make([]byte, 0, 8+len(rows)*24)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(rows)))
	for _, r := range rows {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(r.EntityID))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(floorTo(r.TotalDamage, 100)))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(floorTo(r.DPS, 10)))
	}
	return xxhash.Checksum64(buf)
}

func floorTo(v, step int64) int64 {
	q := v / step
	if v < 0 && v%step != 0 {
		q--
	}
	return q * step
}
