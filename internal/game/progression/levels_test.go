package progression

import "testing"

func TestLevelForXP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		xp   int64
		want int32
	}{
		{0, 1},
		{-5, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{10000, 11},
	}
	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d; want %d", tt.xp, got, tt.want)
		}
	}
}

func TestXPForLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level int32
		want  int64
	}{
		{0, 0},
		{1, 0},
		{2, 100},
		{3, 400},
		{4, 900},
		{11, 10000},
	}
	for _, tt := range tests {
		if got := XPForLevel(tt.level); got != tt.want {
			t.Errorf("XPForLevel(%d) = %d; want %d", tt.level, got, tt.want)
		}
	}
}

func TestLevelCurveRoundTrip(t *testing.T) {
	t.Parallel()

	// The threshold XP for every level maps back to exactly that level,
	// and one XP less maps to the level below.
	for level := int32(2); level <= 50; level++ {
		threshold := XPForLevel(level)
		if got := LevelForXP(threshold); got != level {
			t.Errorf("LevelForXP(XPForLevel(%d)=%d) = %d; want %d",
				level, threshold, got, level)
		}
		if got := LevelForXP(threshold - 1); got != level-1 {
			t.Errorf("LevelForXP(%d) = %d; want %d", threshold-1, got, level-1)
		}
	}
}

func TestStatsForLevel(t *testing.T) {
	t.Parallel()

	stats := StatsForLevel(1, 5)
	if stats.MaxHP != 100 || stats.MaxEnergy != 50 || stats.InventorySlots != 10 {
		t.Errorf("level 1 stats = %+v; want 100 HP, 50 energy, 10 slots", stats)
	}

	stats = StatsForLevel(10, 5)
	if stats.MaxHP != 190 {
		t.Errorf("level 10 MaxHP = %d; want 190", stats.MaxHP)
	}
	if stats.MaxEnergy != 95 {
		t.Errorf("level 10 MaxEnergy = %d; want 95", stats.MaxEnergy)
	}
	// One bonus slot every 5 levels.
	if stats.InventorySlots != 12 {
		t.Errorf("level 10 InventorySlots = %d; want 12", stats.InventorySlots)
	}

	// Zero interval disables the slot bonus.
	stats = StatsForLevel(10, 0)
	if stats.InventorySlots != 10 {
		t.Errorf("InventorySlots with bonus disabled = %d; want 10", stats.InventorySlots)
	}

	// Below-range levels clamp to 1.
	stats = StatsForLevel(0, 5)
	if stats.Level != 1 {
		t.Errorf("clamped level = %d; want 1", stats.Level)
	}
}

func TestKillMultiplier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		agent, mob int32
		want       float64
	}{
		{10, 15, 1.0}, // under-leveled: full reward
		{10, 10, 1.0},
		{11, 10, 0.8},
		{12, 10, 0.6},
		{13, 10, 0.4},
		{14, 10, 0.2},
		{15, 10, 0.05}, // 5+ above: floor
		{50, 10, 0.05},
	}
	for _, tt := range tests {
		if got := KillMultiplier(tt.agent, tt.mob); got != tt.want {
			t.Errorf("KillMultiplier(%d, %d) = %v; want %v",
				tt.agent, tt.mob, got, tt.want)
		}
	}
}
