package model

import (
	"encoding/json"
	"strings"
)

// DamageTable is indexed entity -> target -> skill key. Target 0 is the
// all-targets aggregate and skill "" the all-skills aggregate.
type DamageTable map[int64]map[int64]map[string]SkillStat

// BuffTable is indexed entity -> target -> skill key -> buff name.
type BuffTable map[int64]map[int64]map[string]map[string]BuffStat

type EnemyInfo struct {
	MaxHPTargetID        int64 `json:"max_hp_tid"`
	MostAttackedTargetID int64 `json:"most_attacked_tid"`
	LastAttackedTargetID int64 `json:"last_attacked_tid"`
}

type UserInfo struct {
	Job string `json:"job"`
}

// HitWindow is the combat window against one target, in unix seconds.
type HitWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type ServerStats struct {
	CombatDuration float64         `json:"combat_duration"`
	BuffUptime     json.RawMessage `json:"buff_uptime,omitempty"`
}

type Snapshot struct {
	Damage       DamageTable
	DamageSingle DamageTable
	Buffs        BuffTable
	SelfID       int64
	Enemy        EnemyInfo
	// Users is nil when the producer did not send it.
	Users   map[int64]UserInfo
	HitTime map[int64]HitWindow
	Stats   *ServerStats
}

// NewEmptySnapshot returns the canonical reset shape. The damage tables carry a
// single sentinel entry so "no data yet" is distinguishable from a missing table.
func NewEmptySnapshot() *Snapshot {
	return &Snapshot{
		Damage:       sentinelTable(),
		DamageSingle: sentinelTable(),
		Buffs:        BuffTable{},
		Users:        map[int64]UserInfo{},
		HitTime:      map[int64]HitWindow{},
	}
}

func sentinelTable() DamageTable {
	return DamageTable{0: {0: {"": SkillStat{}}}}
}

func (t DamageTable) Lookup(entityID, targetID int64, skill string) (SkillStat, bool) {
	st, ok := t[entityID][targetID][skill]
	return st, ok
}

// Stat returns EmptyStat when any level of the path is absent.
func (t DamageTable) Stat(entityID, targetID int64, skill string) SkillStat {
	st, ok := t.Lookup(entityID, targetID, skill)
	if !ok {
		return EmptyStat
	}
	return st
}

func (t DamageTable) Skills(entityID, targetID int64) map[string]SkillStat {
	return t[entityID][targetID]
}

func (t BuffTable) Skill(entityID, targetID int64, skill string) map[string]BuffStat {
	return t[entityID][targetID][skill]
}

// Table picks the single-target or aggregate accounting table.
func (s *Snapshot) Table(single bool) DamageTable {
	if s == nil {
		return nil
	}
	if single {
		return s.DamageSingle
	}
	return s.Damage
}

func (s *Snapshot) Job(entityID int64) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.Users[entityID].Job)
}

func (s *Snapshot) Window(targetID int64) (HitWindow, bool) {
	if s == nil {
		return HitWindow{}, false
	}
	w, ok := s.HitTime[targetID]
	return w, ok
}

// TargetFor resolves which target sub-table a boss mode reads.
func (s *Snapshot) TargetFor(mode BossMode) int64 {
	if s == nil {
		return 0
	}
	switch mode {
	case BossAll:
		return 0
	case BossHighestHP:
		return s.Enemy.MaxHPTargetID
	case BossMostAttacked:
		return s.Enemy.MostAttackedTargetID
	default:
		return s.Enemy.LastAttackedTargetID
	}
}

// HasDamage reports whether any aggregate entry carries damage.
func (s *Snapshot) HasDamage() bool {
	if s == nil {
		return false
	}
	for _, targets := range s.Damage {
		for _, skills := range targets {
			if skills[""].All.TotalDamage > 0 {
				return true
			}
		}
	}
	return false
}

type BossMode string

const (
	BossAll          BossMode = "all"
	BossHighestHP    BossMode = "highest_hp"
	BossMostAttacked BossMode = "most_attacked"
	BossLastAttacked BossMode = "last_attacked"
)

var bossModes = []BossMode{BossAll, BossHighestHP, BossMostAttacked, BossLastAttacked}

func ParseBossMode(s string) BossMode {
	v := BossMode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range bossModes {
		if m == v {
			return m
		}
	}
	return BossLastAttacked
}

func (m BossMode) Next() BossMode {
	for i, v := range bossModes {
		if v == m {
			return bossModes[(i+1)%len(bossModes)]
		}
	}
	return BossAll
}
