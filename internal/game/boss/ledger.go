package boss

import "sort"

// Ledger tracks per-participant cumulative damage and payout identity
// for one boss instance. Created together with the instance at spawn,
// consumed once at settlement, cleared on return to dormant.
//
// Not safe for concurrent use on its own; the owning entry's lock
// serializes all access.
type Ledger struct {
	damage  map[string]int64  // participant → cumulative damage
	wallets map[string]string // participant → payout identity, verbatim
}

// NewLedger creates an empty contribution ledger.
func NewLedger() *Ledger {
	return &Ledger{
		damage:  make(map[string]int64, 32),
		wallets: make(map[string]string, 32),
	}
}

// Add records applied damage for a participant. The wallet is captured
// the first time the participant deals damage and never overwritten here;
// corrections go through SetWallet.
//
// Returns true when the participant had no resolvable wallet after the
// call, meaning the contribution is payout-ineligible until one arrives.
func (l *Ledger) Add(participant string, applied int64, wallet string) (walletMissing bool) {
	l.damage[participant] += applied
	if wallet != "" && l.wallets[participant] == "" {
		l.wallets[participant] = wallet
	}
	return l.wallets[participant] == ""
}

// Damage returns the cumulative damage recorded for a participant.
func (l *Ledger) Damage(participant string) int64 {
	return l.damage[participant]
}

// Wallet returns the captured payout identity, "" if none.
func (l *Ledger) Wallet(participant string) string {
	return l.wallets[participant]
}

// SetWallet is the explicit identity-correction path: it overwrites the
// captured wallet unconditionally. Returns false if the participant has
// no damage recorded.
func (l *Ledger) SetWallet(participant, wallet string) bool {
	if _, ok := l.damage[participant]; !ok {
		return false
	}
	l.wallets[participant] = wallet
	return true
}

// Participants returns the number of participants with damage recorded.
func (l *Ledger) Participants() int {
	return len(l.damage)
}

// Clear resets both mappings to empty. Idempotent.
func (l *Ledger) Clear() {
	l.damage = make(map[string]int64, 32)
	l.wallets = make(map[string]string, 32)
}

// Restore loads a persisted contribution into the ledger. Used only
// during the startup load barrier.
func (l *Ledger) Restore(participant string, damage int64, wallet string) {
	l.damage[participant] = damage
	if wallet != "" {
		l.wallets[participant] = wallet
	}
}

// Snapshot is an immutable copy of the ledger taken for downstream
// payout computation, which runs after the boss has left Active.
type Snapshot struct {
	Damage  map[string]int64
	Wallets map[string]string
}

// Snapshot returns a deep copy of both mappings. The live maps are never
// exposed.
func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{
		Damage:  make(map[string]int64, len(l.damage)),
		Wallets: make(map[string]string, len(l.wallets)),
	}
	for p, d := range l.damage {
		s.Damage[p] = d
	}
	for p, w := range l.wallets {
		s.Wallets[p] = w
	}
	return s
}

// Contribution is one participant's ranking entry.
type Contribution struct {
	Participant string `json:"participant"`
	Damage      int64  `json:"damage"`
	Wallet      string `json:"wallet,omitempty"`
}

// Top returns the n highest contributors, ties broken by participant id
// for a stable order.
func (s Snapshot) Top(n int) []Contribution {
	entries := make([]Contribution, 0, len(s.Damage))
	for p, d := range s.Damage {
		if d <= 0 {
			continue
		}
		entries = append(entries, Contribution{Participant: p, Damage: d, Wallet: s.Wallets[p]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Damage != entries[j].Damage {
			return entries[i].Damage > entries[j].Damage
		}
		return entries[i].Participant < entries[j].Participant
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
