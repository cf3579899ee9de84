package export

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ZehenForever/dpsboard/internal/model"
	"github.com/ZehenForever/dpsboard/internal/ranking"
	"github.com/ZehenForever/dpsboard/internal/store"
)

func sessionSnapshot() *model.Snapshot {
	s := model.NewEmptySnapshot()
	s.SelfID = 2
	s.Enemy = model.EnemyInfo{MaxHPTargetID: 9, MostAttackedTargetID: 9, LastAttackedTargetID: 9}
	s.HitTime[0] = model.HitWindow{Start: 1000, End: 1040}
	s.HitTime[9] = model.HitWindow{Start: 1010, End: 1040}
	for id, dmg := range map[int64]int64{1: 80000, 2: 120000, 3: 40000} {
		st := model.SkillStat{
			All:    model.HitStat{TotalDamage: dmg, TotalCount: 50},
			Normal: model.HitStat{TotalCount: 40, CritCount: 10, AddhitCount: 5},
			Buff:   model.BuffImpact{TotalCount: 10, TotalAtk: 15, TotalDmg: 5},
		}
		s.Damage[id] = map[int64]map[string]model.SkillStat{0: {"": st}, 9: {"": st}}
		s.DamageSingle[id] = map[int64]map[string]model.SkillStat{9: {"": st}}
	}
	s.Users[1] = model.UserInfo{Job: "Deadeye"}
	s.Users[2] = model.UserInfo{Job: "Sorceress"}
	s.Users[3] = model.UserInfo{Job: "Paladin"}
	s.Buffs[2] = map[int64]map[string]map[string]model.BuffStat{0: {"": {"Aura": {Type: model.BuffSynergy, TotalStack: 20, MaxStack: 1, TotalCount: 20}}}}
	return s
}

func TestDocument_RoundTripPreservesRanking(t *testing.T) {
	orig := sessionSnapshot()
	var buf bytes.Buffer
	if err := WriteDocument(&buf, orig, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), `"damageDB2"`) || !strings.Contains(buf.String(), `"selfID": 2`) {
		t.Fatalf("document keys missing: %s", buf.String())
	}

	imported, err := ReadDocument(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	st := store.New()
	st.Replace(imported)

	modes := []ranking.Mode{
		{Boss: model.BossAll},
		{Boss: model.BossHighestHP},
		{Boss: model.BossLastAttacked, Single: true},
	}
	for _, m := range modes {
		want := ranking.ComputeCurrent(orig, m)
		got := ranking.ComputeCurrent(st.Current(), m)
		if len(want) == 0 {
			t.Fatalf("mode=%+v fixture produced no rows", m)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("mode=%+v got=%+v want=%+v", m, got, want)
		}
	}
}

func TestReadDocument_Rejects(t *testing.T) {
	if _, err := ReadDocument(strings.NewReader(`{"selfID":1}`)); !errors.Is(err, ErrNoDamage) {
		t.Fatalf("err=%v want ErrNoDamage", err)
	}
	if _, err := ReadDocument(strings.NewReader(`{"damageDB":`)); err == nil {
		t.Fatalf("truncated document accepted")
	}
}

func TestSaveAndLoadDocument(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 21, 5, 7, 0, time.UTC)
	path, err := SaveDocument(dir, sessionSnapshot(), now)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(path, "savedata_20240309_210507.json") {
		t.Fatalf("path=%s", path)
	}
	snap, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Job(2) != "Sorceress" || snap.Enemy.LastAttackedTargetID != 9 {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestWriteCSV(t *testing.T) {
	rows := ranking.ComputeCurrent(sessionSnapshot(), ranking.Mode{Boss: model.BossAll})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("csv: %v", err)
	}
	want := "Rank,Name,DPS,Total Damage,Damage Share,Critical Rate,Add Hit Rate\n" +
		"1,Sorceress,3000,120000,50.0%,25.00%,14.29%\n" +
		"2,Deadeye,2000,80000,33.3%,25.00%,14.29%\n" +
		"3,Paladin,1000,40000,16.7%,25.00%,14.29%\n"
	if buf.String() != want {
		t.Fatalf("csv=\n%s\nwant=\n%s", buf.String(), want)
	}
}

func TestSummary(t *testing.T) {
	rows := make([]ranking.Row, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, ranking.Row{EntityID: int64(i + 1), JobName: "Bard", TotalDamage: 1000, DPS: 12345, ShareOfTotal: 1.0 / 12})
	}
	got := Summary(rows, 83.4)

	if !strings.HasPrefix(got, "**Combat Time**: 01:23\n**Total Damage**: 12,000\n\n**DPS Ranking**\n") {
		t.Fatalf("header=%q", got)
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	// 3 header lines + blank + 10 rows
	if len(lines) != 14 {
		t.Fatalf("lines=%d want=14\n%s", len(lines), got)
	}
	if lines[4] != "🥇 **Bard** - 12,345 DPS (8.3%)" {
		t.Fatalf("first row=%q", lines[4])
	}
	if !strings.HasPrefix(lines[6], "🥉 ") || !strings.HasPrefix(lines[7], "4. ") || !strings.HasPrefix(lines[13], "10. ") {
		t.Fatalf("medals=%q %q %q", lines[6], lines[7], lines[13])
	}
}

func TestClock(t *testing.T) {
	cases := map[float64]string{0: "00:00", -5: "00:00", 59.9: "00:59", 61: "01:01", 3725: "1:02:05"}
	for in, want := range cases {
		if got := Clock(in); got != want {
			t.Fatalf("clock(%v)=%q want=%q", in, got, want)
		}
	}
}
