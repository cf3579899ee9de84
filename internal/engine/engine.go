package engine

import (
	"log"
	"sync"
	"time"

	"github.com/ZehenForever/dpsboard/internal/metrics"
	"github.com/ZehenForever/dpsboard/internal/model"
	"github.com/ZehenForever/dpsboard/internal/ranking"
	"github.com/ZehenForever/dpsboard/internal/render"
	"github.com/ZehenForever/dpsboard/internal/series"
	"github.com/ZehenForever/dpsboard/internal/store"
)

const (
	DefaultIdleTimeout = 60 * time.Second
	DefaultIdleCheck   = 10 * time.Second
)

type State int

const (
	StateEmpty State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "ACTIVE"
	}
	return "EMPTY"
}

// ClearSender forwards a reset to the feed source.
type ClearSender interface {
	SendClear() error
}

type Config struct {
	Mode           ranking.Mode
	IdleTimeout    time.Duration
	SampleCapacity int
	TopN           int
	Debounce       time.Duration
	SampleEvery    time.Duration
}

// Engine owns the dashboard state. Every mutation goes through Replace, Reset,
// Tick or Sample.
type Engine struct {
	mu sync.Mutex

	store   *store.Store
	sampler *series.Sampler
	sched   *render.Scheduler

	mode        ranking.Mode
	state       State
	lastData    time.Time
	idleTimeout time.Duration
	clear       ClearSender
	autoResets  int
}

func New(cfg Config) *Engine {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Mode.Boss == "" {
		cfg.Mode.Boss = model.BossLastAttacked
	}
	return &Engine{
		store:   store.New(),
		sampler: series.NewSampler(cfg.SampleCapacity, cfg.TopN),
		sched: render.NewScheduler(render.Options{
			Debounce:    cfg.Debounce,
			SampleEvery: cfg.SampleEvery,
		}),
		mode:        cfg.Mode,
		idleTimeout: cfg.IdleTimeout,
	}
}

func (e *Engine) SetClearSender(c ClearSender) {
	e.mu.Lock()
	e.clear = c
	e.mu.Unlock()
}

func (e *Engine) Scheduler() *render.Scheduler {
	return e.sched
}

// Replace installs an inbound snapshot and schedules a render.
func (e *Engine) Replace(snap *model.Snapshot, now time.Time) {
	if snap == nil {
		return
	}
	e.mu.Lock()
	e.store.Replace(snap)
	e.lastData = now
	if e.state == StateEmpty && qualifies(e.store.Current()) {
		e.state = StateActive
		debugf("engine: %s -> %s", StateEmpty, StateActive)
	}
	e.mu.Unlock()

	e.sched.RequestRender()
}

// Reset clears local state and then asks the feed to clear. Local state is
// cleared even when the feed cannot be reached; that error is returned.
func (e *Engine) Reset() error {
	e.mu.Lock()
	e.resetLocked()
	c := e.clear
	e.mu.Unlock()
	return e.sendClear(c)
}

func (e *Engine) sendClear(c ClearSender) error {
	e.sched.RequestRender()
	if c == nil {
		return nil
	}
	if err := c.SendClear(); err != nil {
		log.Printf("engine: clear not sent: %v", err)
		return err
	}
	return nil
}

func (e *Engine) resetLocked() {
	prev := e.state
	e.store.Reset()
	e.sampler.Reset()
	e.sched.Invalidate()
	e.state = StateEmpty
	if prev != StateEmpty {
		debugf("engine: %s -> %s", prev, StateEmpty)
	}
}

// Tick runs the idle check. It reports whether an auto-reset fired. The idle
// decision and the local clear happen under one lock.
func (e *Engine) Tick(now time.Time) bool {
	e.mu.Lock()
	idle := now.Sub(e.lastData)
	fire := e.state == StateActive && !e.lastData.IsZero() &&
		idle >= e.idleTimeout && qualifies(e.store.Current())
	if !fire {
		e.mu.Unlock()
		return false
	}
	e.autoResets++
	e.resetLocked()
	c := e.clear
	e.mu.Unlock()

	log.Printf("engine: auto-reset idle=%s timeout=%s", idle.Truncate(time.Second), e.idleTimeout)
	_ = e.sendClear(c)
	return true
}

// Sample appends the current top-N DPS to the chart history.
func (e *Engine) Sample() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampler.Sample(ranking.ComputeCurrent(e.store.Current(), e.mode))
}

func (e *Engine) SetVisible(visible bool) {
	e.sched.SetVisible(visible)
}

func (e *Engine) Close() {
	e.sched.Stop()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) AutoResets() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoResets
}

func (e *Engine) LastData() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastData
}

func (e *Engine) Mode() ranking.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Engine) SetMode(m ranking.Mode) {
	if m.Boss == "" {
		m.Boss = model.BossLastAttacked
	}
	e.mu.Lock()
	e.mode = m
	e.mu.Unlock()

	e.sched.Invalidate()
	e.sched.RequestRender()
}

func (e *Engine) Snapshot() *model.Snapshot {
	return e.store.Current()
}

func (e *Engine) TargetID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.CurrentTargetID(e.mode.Boss)
}

func (e *Engine) Ranking() []ranking.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ranking.ComputeCurrent(e.store.Current(), e.mode)
}

func (e *Engine) Detail(entityID int64, skill string) (ranking.Detail, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.store.Current()
	return ranking.BuildDetail(snap, e.mode, snap.TargetFor(e.mode.Boss), entityID, skill)
}

// Runtime is the combat time for the current target, in seconds.
func (e *Engine) Runtime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.store.Current()
	return metrics.RuntimeSeconds(snap.Window(snap.TargetFor(e.mode.Boss)))
}

// Series returns the displayed entity histories and the average line.
func (e *Engine) Series() ([]series.Series, []int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampler.Series(), e.sampler.Average()
}

func (e *Engine) SampleCapacity() int {
	return e.sampler.Capacity()
}

func qualifies(snap *model.Snapshot) bool {
	return len(ranking.Compute(snap, ranking.Mode{Boss: model.BossAll}, 0)) > 0
}
