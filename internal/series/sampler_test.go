package series

import (
	"reflect"
	"testing"

	"github.com/ZehenForever/dpsboard/internal/ranking"
)

func rows(dps ...int64) []ranking.Row {
	out := make([]ranking.Row, 0, len(dps))
	for i, v := range dps {
		out = append(out, ranking.Row{EntityID: int64(i + 1), JobName: "Job", DPS: v})
	}
	return out
}

func TestSampler_EvictsOldestAtCapacity(t *testing.T) {
	s := NewSampler(3, 5)
	for _, v := range []int64{10, 20, 30, 40, 50} {
		s.Sample(rows(v))
	}
	if got := s.History(1); !reflect.DeepEqual(got, []int64{30, 40, 50}) {
		t.Fatalf("history=%v want=[30 40 50]", got)
	}
	if got := s.Ticks(); got != 5 {
		t.Fatalf("ticks=%d want=5", got)
	}
}

func TestSampler_KeepsHistoryOutsideTopN(t *testing.T) {
	s := NewSampler(10, 1)

	s.Sample([]ranking.Row{{EntityID: 1, DPS: 100}, {EntityID: 2, DPS: 50}})
	s.Sample([]ranking.Row{{EntityID: 2, DPS: 300}, {EntityID: 1, DPS: 90}})
	s.Sample([]ranking.Row{{EntityID: 1, DPS: 400}, {EntityID: 2, DPS: 200}})

	if got := s.History(1); !reflect.DeepEqual(got, []int64{100, 400}) {
		t.Fatalf("entity1=%v want=[100 400]", got)
	}
	if got := s.History(2); !reflect.DeepEqual(got, []int64{300}) {
		t.Fatalf("entity2=%v want=[300]", got)
	}
	if got := s.Displayed(); !reflect.DeepEqual(got, []int64{1}) {
		t.Fatalf("displayed=%v want=[1]", got)
	}
}

func TestSampler_AverageSeries(t *testing.T) {
	s := NewSampler(10, 3)
	s.Sample(rows(300, 100, 200, 999))
	s.Sample(rows(30, 10))

	if got := s.Average(); !reflect.DeepEqual(got, []int64{200, 20}) {
		t.Fatalf("average=%v want=[200 20]", got)
	}
	if _, ok := s.history[4]; ok {
		t.Fatalf("entity outside top-N was sampled")
	}
}

func TestSampler_EmptyTickAndReset(t *testing.T) {
	s := NewSampler(10, 3)
	s.Sample(rows(100))
	s.Sample(nil)
	if got := s.Ticks(); got != 1 {
		t.Fatalf("ticks=%d want=1", got)
	}
	if len(s.Series()) != 0 {
		t.Fatalf("series after empty tick=%v", s.Series())
	}

	s.Sample(rows(100))
	s.Reset()
	if s.History(1) != nil || len(s.Average()) != 0 || s.Ticks() != 0 {
		t.Fatalf("reset left state")
	}
}

func TestSampler_SeriesInRankOrder(t *testing.T) {
	s := NewSampler(10, 5)
	s.Sample([]ranking.Row{{EntityID: 8, JobName: "Bard", DPS: 5}, {EntityID: 3, JobName: "Slayer", DPS: 2}})
	got := s.Series()
	if len(got) != 2 || got[0].EntityID != 8 || got[0].Label != "Bard" || got[1].EntityID != 3 {
		t.Fatalf("series=%+v", got)
	}
}
