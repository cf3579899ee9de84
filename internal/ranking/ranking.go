package ranking

import (
	"sort"

	"github.com/samber/lo"

	"github.com/ZehenForever/dpsboard/internal/metrics"
	"github.com/ZehenForever/dpsboard/internal/model"
)

const MaxRows = 12

type Mode struct {
	Boss   model.BossMode `json:"bossMode"`
	Single bool           `json:"single"`
}

type Row struct {
	EntityID     int64   `json:"entityId"`
	JobName      string  `json:"jobName"`
	IsSelf       bool    `json:"isSelf"`
	TotalDamage  int64   `json:"totalDamage"`
	DPS          int64   `json:"dps"`
	CritRate     float64 `json:"critRate"`
	AddHitRate   float64 `json:"addHitRate"`
	AvgAtkBuff   float64 `json:"avgAtkBuff"`
	AvgDmgBuff   float64 `json:"avgDmgBuff"`
	ShareOfTotal float64 `json:"shareOfTotal"`
}

// Compute builds the leaderboard for targetID. Entities need a "" aggregate with
// positive damage and a known job to qualify. Equal damage falls back to entity id.
func Compute(snap *model.Snapshot, mode Mode, targetID int64) []Row {
	tbl := snap.Table(mode.Single)
	if len(tbl) == 0 {
		return []Row{}
	}
	runtime := metrics.RuntimeSeconds(snap.Window(targetID))

	rows := make([]Row, 0, len(tbl))
	for id := range tbl {
		agg, ok := tbl.Lookup(id, targetID, "")
		if !ok || agg.All.TotalDamage <= 0 {
			continue
		}
		job := snap.Job(id)
		if job == "" {
			continue
		}
		rows = append(rows, Row{
			EntityID:    id,
			JobName:     job,
			IsSelf:      id == snap.SelfID,
			TotalDamage: agg.All.TotalDamage,
			DPS:         metrics.DPS(agg.All.TotalDamage, runtime),
			CritRate:    metrics.CritRate(agg),
			AddHitRate:  metrics.AddHitRate(agg),
			AvgAtkBuff:  metrics.AvgBuffAttack(agg),
			AvgDmgBuff:  metrics.AvgBuffDamage(agg),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalDamage == rows[j].TotalDamage {
			return rows[i].EntityID < rows[j].EntityID
		}
		return rows[i].TotalDamage > rows[j].TotalDamage
	})
	if len(rows) > MaxRows {
		rows = rows[:MaxRows]
	}

	sum := TotalDamage(rows)
	for i := range rows {
		if len(rows) == 1 {
			rows[i].ShareOfTotal = 1
			continue
		}
		rows[i].ShareOfTotal = metrics.Share(rows[i].TotalDamage, sum)
	}
	return rows
}

// ComputeCurrent resolves the target from the snapshot's enemy metadata first.
func ComputeCurrent(snap *model.Snapshot, mode Mode) []Row {
	return Compute(snap, mode, snap.TargetFor(mode.Boss))
}

func TotalDamage(rows []Row) int64 {
	return lo.SumBy(rows, func(r Row) int64 { return r.TotalDamage })
}

func Find(rows []Row, entityID int64) (Row, int, bool) {
	for i, r := range rows {
		if r.EntityID == entityID {
			return r, i, true
		}
	}
	return Row{}, -1, false
}
