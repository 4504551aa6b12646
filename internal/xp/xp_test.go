package xp_test

import (
	"testing"

	"missionboard/internal/domain"
	"missionboard/internal/xp"
)

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		xp      int64
		general bool
		level   int
	}{
		{0, false, 1},
		{499, false, 1},
		{500, false, 2},
		{999, false, 2},
		{1000, false, 3},
		{999, true, 1},
		{1000, true, 2},
		{1999, true, 2},
	}
	for _, tc := range cases {
		got := xp.Level(tc.xp, tc.general)
		if got.Level != tc.level {
			t.Errorf("Level(%d, general=%v).Level = %d, want %d", tc.xp, tc.general, got.Level, tc.level)
		}
	}
}

func TestLevelMonotonicAndBounded(t *testing.T) {
	prev := 0
	for v := int64(0); v <= 30000; v += 37 {
		p := xp.Level(v, false)
		if p.Level < prev {
			t.Fatalf("level decreased at xp=%d: %d -> %d", v, prev, p.Level)
		}
		if p.Level < 1 || p.Level > 50 {
			t.Fatalf("level out of range at xp=%d: %d", v, p.Level)
		}
		prev = p.Level
	}
}

func TestLevelCapAt50(t *testing.T) {
	p := xp.Level(1_000_000, false)
	if p.Level != 50 {
		t.Fatalf("expected level 50, got %d", p.Level)
	}
	if p.XPForNextLevel != 0 {
		t.Fatalf("expected xp_for_next_level 0 at cap, got %d", p.XPForNextLevel)
	}
	if p.Progress != 1.0 {
		t.Fatalf("expected progress 1.0 at cap, got %f", p.Progress)
	}
	if p.Tier != "legend" || p.SubLevel != 5 {
		t.Fatalf("expected legend/5 at cap, got %s/%d", p.Tier, p.SubLevel)
	}
}

func TestTierAndSubLevel(t *testing.T) {
	// level 1 = first tier, sub-level 1
	p := xp.Level(0, false)
	if p.Tier != "novice" || p.SubLevel != 1 {
		t.Fatalf("xp=0: got %s/%d", p.Tier, p.SubLevel)
	}
	// level 6 = second tier, sub-level 1 (5*500 = 2500)
	p = xp.Level(2500, false)
	if p.Level != 6 || p.Tier != "apprentice" || p.SubLevel != 1 {
		t.Fatalf("xp=2500: got level=%d %s/%d", p.Level, p.Tier, p.SubLevel)
	}
}

func TestProgressFraction(t *testing.T) {
	p := xp.Level(250, false)
	if p.XPInLevel != 250 || p.XPForNextLevel != 500 {
		t.Fatalf("unexpected in-level values: %d/%d", p.XPInLevel, p.XPForNextLevel)
	}
	if p.Progress != 0.5 {
		t.Fatalf("expected progress 0.5, got %f", p.Progress)
	}
}

func TestForAcceptance(t *testing.T) {
	g := xp.ForAcceptance(100, 50, domain.SpacePro)
	if g.Global != 150 || g.Pro != 150 || g.Solid != 0 {
		t.Fatalf("pro grant: %+v", g)
	}
	g = xp.ForAcceptance(100, 0, domain.SpaceSolid)
	if g.Global != 100 || g.Pro != 0 || g.Solid != 100 {
		t.Fatalf("solidaire grant: %+v", g)
	}
}

func TestForFollow(t *testing.T) {
	g := xp.ForFollow()
	if g.Global != 5 || g.Pro != 0 || g.Solid != 0 {
		t.Fatalf("follow grant: %+v", g)
	}
}
