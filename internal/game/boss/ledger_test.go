package boss

import "testing"

func TestLedger_AddCapturesFirstWallet(t *testing.T) {
	t.Parallel()

	l := NewLedger()

	missing := l.Add("agent-1", 100, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if missing {
		t.Error("Add with wallet reported walletMissing = true; want false")
	}
	if l.Damage("agent-1") != 100 {
		t.Errorf("Damage() = %d; want 100", l.Damage("agent-1"))
	}

	// Later Add with a different wallet must not overwrite.
	l.Add("agent-1", 50, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	if got := l.Wallet("agent-1"); got != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("Wallet() = %q; want first captured wallet", got)
	}
	if l.Damage("agent-1") != 150 {
		t.Errorf("Damage() = %d; want 150", l.Damage("agent-1"))
	}
}

func TestLedger_AddWithoutWallet(t *testing.T) {
	t.Parallel()

	l := NewLedger()

	if missing := l.Add("agent-1", 10, ""); !missing {
		t.Error("Add without wallet reported walletMissing = false; want true")
	}

	// A wallet arriving on a later hit resolves eligibility.
	if missing := l.Add("agent-1", 10, "0xcccccccccccccccccccccccccccccccccccccccc"); missing {
		t.Error("Add with wallet reported walletMissing = true; want false")
	}
	if l.Wallet("agent-1") == "" {
		t.Error("wallet not captured on later hit")
	}
}

func TestLedger_SetWallet(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Add("agent-1", 10, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	// Correction overwrites unconditionally.
	if !l.SetWallet("agent-1", "0xdddddddddddddddddddddddddddddddddddddddd") {
		t.Fatal("SetWallet returned false for known participant")
	}
	if got := l.Wallet("agent-1"); got != "0xdddddddddddddddddddddddddddddddddddddddd" {
		t.Errorf("Wallet() = %q; want corrected wallet", got)
	}

	// Unknown participant is rejected.
	if l.SetWallet("nobody", "0xdddddddddddddddddddddddddddddddddddddddd") {
		t.Error("SetWallet returned true for unknown participant")
	}
}

func TestLedger_Restore(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Restore("agent-1", 500, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	l.Restore("agent-2", 300, "")

	if l.Damage("agent-1") != 500 || l.Damage("agent-2") != 300 {
		t.Errorf("restored damage = %d, %d; want 500, 300",
			l.Damage("agent-1"), l.Damage("agent-2"))
	}
	if l.Wallet("agent-2") != "" {
		t.Errorf("Wallet(agent-2) = %q; want empty", l.Wallet("agent-2"))
	}
	if l.Participants() != 2 {
		t.Errorf("Participants() = %d; want 2", l.Participants())
	}
}

func TestLedger_SnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Add("agent-1", 100, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	snap := l.Snapshot()
	l.Add("agent-1", 900, "")
	l.Clear()

	if snap.Damage["agent-1"] != 100 {
		t.Errorf("snapshot damage = %d; want 100 (unaffected by later mutation)",
			snap.Damage["agent-1"])
	}
	if snap.Wallets["agent-1"] == "" {
		t.Error("snapshot wallet lost after Clear")
	}
}

func TestLedger_Clear(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Add("agent-1", 100, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	l.Clear()
	if l.Participants() != 0 {
		t.Errorf("Participants() after Clear = %d; want 0", l.Participants())
	}
	if l.Wallet("agent-1") != "" {
		t.Error("wallet survived Clear")
	}

	// Idempotent.
	l.Clear()
	if l.Participants() != 0 {
		t.Error("second Clear changed state")
	}
}

func TestSnapshot_Top(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Add("charlie", 300, "")
	l.Add("alice", 500, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	l.Add("bob", 300, "")
	l.Add("dave", 100, "")

	top := l.Snapshot().Top(3)
	if len(top) != 3 {
		t.Fatalf("Top(3) returned %d entries; want 3", len(top))
	}
	if top[0].Participant != "alice" || top[0].Damage != 500 {
		t.Errorf("top[0] = %s/%d; want alice/500", top[0].Participant, top[0].Damage)
	}
	// Ties broken by participant id for a stable order.
	if top[1].Participant != "bob" || top[2].Participant != "charlie" {
		t.Errorf("tie order = %s, %s; want bob, charlie",
			top[1].Participant, top[2].Participant)
	}

	all := l.Snapshot().Top(0)
	if len(all) != 4 {
		t.Errorf("Top(0) returned %d entries; want all 4", len(all))
	}
}
