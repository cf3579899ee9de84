package series

import (
	"github.com/samber/lo"

	"github.com/ZehenForever/dpsboard/internal/ranking"
)

const (
	// 30 minutes at one sample every 5s.
	DefaultCapacity = 360
	DefaultTopN     = 12
)

type Series struct {
	EntityID int64   `json:"entityId"`
	Label    string  `json:"label"`
	Values   []int64 `json:"values"`
}

// Sampler keeps a bounded DPS history per entity. Histories are kept when an
// entity drops out of the top-N so a later return continues the same line.
type Sampler struct {
	capacity int
	topN     int

	history   map[int64]*ring
	labels    map[int64]string
	average   *ring
	displayed []int64
	ticks     int
}

func NewSampler(capacity, topN int) *Sampler {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Sampler{
		capacity: capacity,
		topN:     topN,
		history:  make(map[int64]*ring),
		labels:   make(map[int64]string),
		average:  newRing(capacity),
	}
}

// Sample appends one point per displayed entity. rows must already be ranked.
// A tick with no rows appends nothing.
func (s *Sampler) Sample(rows []ranking.Row) {
	if len(rows) > s.topN {
		rows = rows[:s.topN]
	}
	if len(rows) == 0 {
		s.displayed = nil
		return
	}

	for _, r := range rows {
		h := s.history[r.EntityID]
		if h == nil {
			h = newRing(s.capacity)
			s.history[r.EntityID] = h
		}
		h.push(r.DPS)
		s.labels[r.EntityID] = r.JobName
	}
	s.displayed = lo.Map(rows, func(r ranking.Row, _ int) int64 { return r.EntityID })

	sum := lo.SumBy(rows, func(r ranking.Row) int64 { return r.DPS })
	s.average.push(sum / int64(len(rows)))
	s.ticks++
}

// History returns the entity's samples oldest first.
func (s *Sampler) History(entityID int64) []int64 {
	h := s.history[entityID]
	if h == nil {
		return nil
	}
	return h.values()
}

func (s *Sampler) Average() []int64 {
	return s.average.values()
}

// Displayed is the entity order of the most recent tick.
func (s *Sampler) Displayed() []int64 {
	return append([]int64(nil), s.displayed...)
}

func (s *Sampler) Ticks() int {
	return s.ticks
}

func (s *Sampler) Capacity() int {
	return s.capacity
}

// Series lists the displayed entities in rank order.
func (s *Sampler) Series() []Series {
	return lo.Map(s.displayed, func(id int64, _ int) Series {
		return Series{EntityID: id, Label: s.labels[id], Values: s.History(id)}
	})
}

func (s *Sampler) Reset() {
	s.history = make(map[int64]*ring)
	s.labels = make(map[int64]string)
	s.average = newRing(s.capacity)
	s.displayed = nil
	s.ticks = 0
}

// ring is a fixed-size buffer that drops its oldest value when full.
type ring struct {
	head int
	size int
	buf  []int64
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]int64, capacity)}
}

func (r *ring) push(v int64) {
	idx := (r.head + r.size) % len(r.buf)
	r.buf[idx] = v
	if r.size < len(r.buf) {
		r.size++
		return
	}
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) values() []int64 {
	out := make([]int64, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}
