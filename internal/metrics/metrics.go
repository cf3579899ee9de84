// Package metrics derives rates from snapshot counters. Every function is total:
// absent or zero input yields 0, never NaN, Inf or a negative rate.
package metrics

import (
	"math"

	"github.com/ZehenForever/dpsboard/internal/model"
)

func CritRate(st model.SkillStat) float64 {
	return Round2(Percent(float64(st.BaseCrits()), float64(st.BaseHits())))
}

// AddHitRate compares add-hits to the base hits they were layered on, so the
// add-hits themselves are removed from the denominator.
func AddHitRate(st model.SkillStat) float64 {
	add := st.BaseAddhits()
	return Round2(Percent(float64(add), float64(st.BaseHits()-add)))
}

func PowerRate(st model.SkillStat) float64 {
	n := st.Normal.PowerCount + st.Special.PowerCount
	return Round2(Percent(float64(n), float64(st.BaseHits())))
}

func FastRate(st model.SkillStat) float64 {
	n := st.Normal.FastCount + st.Special.FastCount
	return Round2(Percent(float64(n), float64(st.BaseHits())))
}

func AvgBuffAttack(st model.SkillStat) float64 {
	if st.Buff.TotalCount <= 0 {
		return 0
	}
	return clean(st.Buff.TotalAtk / float64(st.Buff.TotalCount))
}

func AvgBuffDamage(st model.SkillStat) float64 {
	if st.Buff.TotalCount <= 0 {
		return 0
	}
	return clean(st.Buff.TotalDmg / float64(st.Buff.TotalCount))
}

func Percent(n, d float64) float64 {
	if !(d > 0) {
		return 0
	}
	v := clean(n / d * 100)
	if v < 0 {
		return 0
	}
	return v
}

func RuntimeSeconds(w model.HitWindow, ok bool) float64 {
	if !ok {
		return 0
	}
	v := clean(w.End - w.Start)
	if v < 0 {
		return 0
	}
	return v
}

func DPS(totalDamage int64, runtime float64) int64 {
	if !(runtime > 0) || totalDamage <= 0 {
		return 0
	}
	v := math.Floor(float64(totalDamage) / runtime)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return int64(v)
}

// BuffUptime weights the buff's active hits by stack fill (totalStack/maxStack)
// and expresses them against hits. The result is capped at 100.
func BuffUptime(b model.BuffStat, hits int64) float64 {
	if b.MaxStack <= 0 {
		return 0
	}
	v := Percent(float64(b.TotalStack)/float64(b.MaxStack), float64(hits))
	if v > 100 {
		return 100
	}
	return Round2(v)
}

func AvgStack(b model.BuffStat) float64 {
	if b.TotalCount <= 0 || b.TotalStack <= 0 {
		return 0
	}
	return Round2(float64(b.TotalStack) / float64(b.TotalCount))
}

// Share is total/sum as a fraction in [0,1].
func Share(total, sum int64) float64 {
	if sum <= 0 || total <= 0 {
		return 0
	}
	return clean(float64(total) / float64(sum))
}

func AvgHit(h model.HitStat) float64 {
	if h.TotalCount <= 0 {
		return 0
	}
	return clean(float64(h.TotalDamage) / float64(h.TotalCount))
}

func Round2(v float64) float64 {
	return clean(math.Round(v*100) / 100)
}

func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
