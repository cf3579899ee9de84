package store

import (
	"testing"

	"github.com/ZehenForever/dpsboard/internal/model"
)

func TestReplace_SwapsWholesale(t *testing.T) {
	s := New()
	first := &model.Snapshot{
		Damage: model.DamageTable{1: {0: {"": {All: model.HitStat{TotalDamage: 100}}}}},
		SelfID: 1,
		Users:  map[int64]model.UserInfo{1: {Job: "Berserker"}},
		HitTime: map[int64]model.HitWindow{
			0: {Start: 10, End: 20},
		},
	}
	s.Replace(first)

	second := &model.Snapshot{
		Damage: model.DamageTable{2: {0: {"": {All: model.HitStat{TotalDamage: 50}}}}},
		SelfID: 2,
		Users:  map[int64]model.UserInfo{2: {Job: "Bard"}},
	}
	s.Replace(second)

	cur := s.Current()
	if _, ok := cur.Damage.Lookup(1, 0, ""); ok {
		t.Fatalf("entity 1 survived replace")
	}
	if cur.SelfID != 2 {
		t.Fatalf("selfID=%d want=2", cur.SelfID)
	}
	if len(cur.HitTime) != 0 {
		t.Fatalf("hitTime=%v want empty", cur.HitTime)
	}
	if cur.Job(1) != "" || cur.Job(2) != "Bard" {
		t.Fatalf("users=%v", cur.Users)
	}
}

func TestReplace_RetainsUsersWhenAbsent(t *testing.T) {
	s := New()
	s.Replace(&model.Snapshot{Users: map[int64]model.UserInfo{1: {Job: "Elementalist"}}})
	s.Replace(&model.Snapshot{Damage: model.DamageTable{1: {0: {"": {All: model.HitStat{TotalDamage: 5}}}}}})

	if got := s.Current().Job(1); got != "Elementalist" {
		t.Fatalf("job=%q want=Elementalist", got)
	}

	s.Replace(&model.Snapshot{Users: map[int64]model.UserInfo{}})
	if got := s.Current().Job(1); got != "" {
		t.Fatalf("job=%q want empty after explicit empty users", got)
	}
}

func TestReset_RestoresCanonicalEmpty(t *testing.T) {
	s := New()
	s.Replace(&model.Snapshot{
		Damage: model.DamageTable{1: {0: {"": {All: model.HitStat{TotalDamage: 100}}}}},
		Buffs:  model.BuffTable{1: {0: {"": {"Haste": {Type: model.BuffSkill}}}}},
		SelfID: 1,
		Enemy:  model.EnemyInfo{LastAttackedTargetID: 9},
		Users:  map[int64]model.UserInfo{1: {Job: "Bard"}},
	})
	s.Reset()

	cur := s.Current()
	if cur.HasDamage() {
		t.Fatalf("damage survived reset")
	}
	if _, ok := cur.Damage.Lookup(0, 0, ""); !ok {
		t.Fatalf("sentinel missing after reset")
	}
	if cur.SelfID != 0 || len(cur.Users) != 0 || len(cur.Buffs) != 0 {
		t.Fatalf("reset left state: %+v", cur)
	}
	if got := s.CurrentTargetID(model.BossLastAttacked); got != 0 {
		t.Fatalf("target=%d want=0", got)
	}
}

func TestReplace_NilIsIgnored(t *testing.T) {
	s := New()
	before := s.Current()
	s.Replace(nil)
	if s.Current() != before {
		t.Fatalf("nil replace changed snapshot")
	}
}
