package ranking

import (
	"sort"

	"github.com/samber/lo"

	"github.com/ZehenForever/dpsboard/internal/metrics"
	"github.com/ZehenForever/dpsboard/internal/model"
)

type SkillRow struct {
	Skill       string  `json:"skill"`
	TotalDamage int64   `json:"totalDamage"`
	Share       float64 `json:"share"`
	Hits        int64   `json:"hits"`
	MaxDamage   int64   `json:"maxDamage"`
	AvgHit      float64 `json:"avgHit"`
	CritRate    float64 `json:"critRate"`
	AddHitRate  float64 `json:"addHitRate"`
}

type BuffRow struct {
	Name     string         `json:"name"`
	Type     model.BuffType `json:"type"`
	TypeName string         `json:"typeName"`
	Uptime   float64        `json:"uptime"`
	AvgStack float64        `json:"avgStack"`
	MaxStack int64          `json:"maxStack"`
}

type Detail struct {
	Row       Row           `json:"row"`
	TargetID  int64         `json:"targetId"`
	Runtime   float64       `json:"runtimeSec"`
	Normal    model.HitStat `json:"normal"`
	Special   model.HitStat `json:"special"`
	Dot       model.HitStat `json:"dot"`
	PowerRate float64       `json:"powerRate"`
	FastRate  float64       `json:"fastRate"`
	Skills    []SkillRow    `json:"skills"`
	// Skill is the drilled-into skill key; "" covers every skill.
	Skill string    `json:"skill"`
	Buffs []BuffRow `json:"buffs"`
}

// BuildDetail describes one ranked entity. ok is false when the entity is not
// on the current leaderboard. An unknown skill falls back to "".
func BuildDetail(snap *model.Snapshot, mode Mode, targetID, entityID int64, skill string) (Detail, bool) {
	rows := Compute(snap, mode, targetID)
	row, _, ok := Find(rows, entityID)
	if !ok {
		return Detail{}, false
	}

	tbl := snap.Table(mode.Single)
	skills := tbl.Skills(entityID, targetID)
	agg := tbl.Stat(entityID, targetID, "")
	if _, ok := tbl.Lookup(entityID, targetID, skill); !ok {
		skill = ""
	}

	d := Detail{
		Row:       row,
		TargetID:  targetID,
		Runtime:   metrics.RuntimeSeconds(snap.Window(targetID)),
		Normal:    agg.Normal,
		Special:   agg.Special,
		Dot:       agg.Dot,
		PowerRate: metrics.PowerRate(agg),
		FastRate:  metrics.FastRate(agg),
		Skills:    skillRows(skills, agg.All.TotalDamage),
		Skill:     skill,
	}
	d.Buffs = buffRows(snap.Buffs.Skill(entityID, targetID, skill), tbl.Stat(entityID, targetID, skill).BaseHits())
	return d, true
}

// SkillKeys lists the drill-down order: the aggregate first, then by damage.
func (d Detail) SkillKeys() []string {
	return append([]string{""}, lo.Map(d.Skills, func(s SkillRow, _ int) string { return s.Skill })...)
}

func skillRows(skills map[string]model.SkillStat, total int64) []SkillRow {
	keys := lo.Filter(lo.Keys(skills), func(k string, _ int) bool { return k != "" })
	out := make([]SkillRow, 0, len(keys))
	for _, k := range keys {
		st := skills[k]
		out = append(out, SkillRow{
			Skill:       k,
			TotalDamage: st.All.TotalDamage,
			Share:       metrics.Share(st.All.TotalDamage, total),
			Hits:        st.All.TotalCount,
			MaxDamage:   st.All.MaxDamage,
			AvgHit:      metrics.AvgHit(st.All),
			CritRate:    metrics.CritRate(st),
			AddHitRate:  metrics.AddHitRate(st),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalDamage == out[j].TotalDamage {
			return out[i].Skill < out[j].Skill
		}
		return out[i].TotalDamage > out[j].TotalDamage
	})
	return out
}

func buffRows(buffs map[string]model.BuffStat, hits int64) []BuffRow {
	out := make([]BuffRow, 0, len(buffs))
	for name, b := range buffs {
		out = append(out, BuffRow{
			Name:     name,
			Type:     b.Type,
			TypeName: b.Type.String(),
			Uptime:   metrics.BuffUptime(b, hits),
			AvgStack: metrics.AvgStack(b),
			MaxStack: b.MaxStack,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Uptime != out[j].Uptime {
			return out[i].Uptime > out[j].Uptime
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out
}
