package model

import "testing"

func TestBossKindValid(t *testing.T) {
	t.Parallel()

	for _, kind := range AllBossKinds {
		if !kind.Valid() {
			t.Errorf("Valid(%q) = false; want true", kind)
		}
	}
	if BossKind("nessie").Valid() {
		t.Error(`Valid("nessie") = true; want false`)
	}
	if BossKind("").Valid() {
		t.Error(`Valid("") = true; want false`)
	}
}

func TestLifecycleStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state LifecycleState
		want  string
	}{
		{BossDormant, "dormant"},
		{BossWarning, "warning"},
		{BossActive, "active"},
		{BossDying, "dying"},
		{BossSettling, "settling"},
		{LifecycleState(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String(%d) = %q; want %q", tt.state, got, tt.want)
		}
	}
}

func TestLifecycleStateAcceptsDamage(t *testing.T) {
	t.Parallel()

	for _, state := range []LifecycleState{BossDormant, BossWarning, BossDying, BossSettling} {
		if state.AcceptsDamage() {
			t.Errorf("AcceptsDamage(%s) = true; want false", state)
		}
	}
	if !BossActive.AcceptsDamage() {
		t.Error("AcceptsDamage(active) = false; want true")
	}
}
