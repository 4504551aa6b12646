package xp

import "missionboard/internal/domain"

// Thresholds per level. Space-scoped totals (pro/solidaire) level up every
// 500 XP; the general total levels up every 1000 XP because general XP
// accrues at twice the rate by policy, not by recomputation.
const (
	SpaceThreshold   int64 = 500
	GeneralThreshold int64 = 1000

	FollowBonus int64 = 5

	maxLevel      = 50
	levelsPerTier = 5
)

// Tiers in ascending order; each spans five sub-levels.
var Tiers = [10]string{
	"novice",
	"apprentice",
	"scout",
	"envoy",
	"pathfinder",
	"vanguard",
	"champion",
	"luminary",
	"paragon",
	"legend",
}

// Progress describes where an XP total sits in the 50-level ladder.
type Progress struct {
	Tier           string  `json:"tier"`
	SubLevel       int     `json:"sub_level"`
	Level          int     `json:"level"`
	XPInLevel      int64   `json:"xp_in_level"`
	XPForNextLevel int64   `json:"xp_for_next_level"`
	Progress       float64 `json:"progress"`
}

// Grant is the XP delta set produced by a single grant-worthy event.
type Grant struct {
	Global int64
	Pro    int64
	Solid  int64
}

// Level maps an accumulated XP total to its tier/sub-level/progress tuple.
// This is the only place threshold math may live.
func Level(xp int64, general bool) Progress {
	if xp < 0 {
		xp = 0
	}
	threshold := SpaceThreshold
	if general {
		threshold = GeneralThreshold
	}
	level := int(xp/threshold) + 1
	if level >= maxLevel {
		return Progress{
			Tier:           Tiers[len(Tiers)-1],
			SubLevel:       levelsPerTier,
			Level:          maxLevel,
			XPInLevel:      xp - int64(maxLevel-1)*threshold,
			XPForNextLevel: 0,
			Progress:       1.0,
		}
	}
	inLevel := xp - int64(level-1)*threshold
	return Progress{
		Tier:           Tiers[(level-1)/levelsPerTier],
		SubLevel:       (level-1)%levelsPerTier + 1,
		Level:          level,
		XPInLevel:      inLevel,
		XPForNextLevel: threshold,
		Progress:       float64(inLevel) / float64(threshold),
	}
}

// ForAcceptance computes the deltas granted when a submission is accepted.
// The global delta is always base+bonus; the space-scoped delta is the same
// value for the mission's space and zero for the other.
func ForAcceptance(baseXP, bonusXP int64, space string) Grant {
	total := baseXP + bonusXP
	g := Grant{Global: total}
	switch space {
	case domain.SpacePro:
		g.Pro = total
	case domain.SpaceSolid:
		g.Solid = total
	}
	return g
}

// ForFollow is the small global-only bonus granted when a follow edge is
// first created.
func ForFollow() Grant {
	return Grant{Global: FollowBonus}
}
