package model

type HitStat struct {
	TotalCount  int64 `json:"total_count"`
	TotalDamage int64 `json:"total_damage"`
	MaxDamage   int64 `json:"max_damage"`
	MinDamage   int64 `json:"min_damage"`
	CritCount   int64 `json:"crit_count"`
	AddhitCount int64 `json:"addhit_count"`
	PowerCount  int64 `json:"power_count"`
	FastCount   int64 `json:"fast_count"`
}

// BuffImpact accumulates the attack/damage bonus observed on hits while buffs were active.
type BuffImpact struct {
	TotalCount int64   `json:"total_count"`
	TotalAtk   float64 `json:"total_atk"`
	TotalDmg   float64 `json:"total_dmg"`
}

// SkillStat holds the counters for one entity, target and skill. The "" skill key
// carries the aggregate over every skill and is trusted as-is.
type SkillStat struct {
	All     HitStat    `json:"all"`
	Normal  HitStat    `json:"normal"`
	Special HitStat    `json:"special"`
	Dot     HitStat    `json:"dot"`
	Buff    BuffImpact `json:"buff"`
}

// EmptyStat is returned by table lookups that find nothing.
var EmptyStat SkillStat

// BaseHits is the number of direct (normal and special) hits.
func (s SkillStat) BaseHits() int64 {
	return s.Normal.TotalCount + s.Special.TotalCount
}

func (s SkillStat) BaseCrits() int64 {
	return s.Normal.CritCount + s.Special.CritCount
}

func (s SkillStat) BaseAddhits() int64 {
	return s.Normal.AddhitCount + s.Special.AddhitCount
}

type BuffType int

const (
	BuffUnknown BuffType = 0
	BuffRune    BuffType = 1
	BuffSkill   BuffType = 11
	BuffSynergy BuffType = 12
	BuffEnemy   BuffType = 21
	BuffPet     BuffType = 31
)

func (t BuffType) String() string {
	switch t {
	case BuffRune:
		return "Rune"
	case BuffSkill:
		return "Skill"
	case BuffSynergy:
		return "Synergy"
	case BuffEnemy:
		return "Enemy"
	case BuffPet:
		return "Pet"
	default:
		return "Unknown"
	}
}

type BuffStat struct {
	Type       BuffType `json:"type"`
	TotalStack int64    `json:"total_stack"`
	MaxStack   int64    `json:"max_stack"`
	TotalCount int64    `json:"total_count"`
}
