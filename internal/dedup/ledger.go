// Package dedup suppresses duplicate leads produced by overlapping pages or
// re-rendered content.
package dedup

import "leadgrab/internal/lead"

// Ledger is the set of identity keys already emitted in this run. It is
// owned and mutated only by the extraction loop, so it needs no locking.
type Ledger struct {
	seen       map[string]struct{}
	duplicates int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Accept records the lead's identity key if unseen and reports whether the
// lead should be forwarded. Rejections are counted, not errors.
func (l *Ledger) Accept(ld *lead.Lead) bool {
	key := lead.IdentityKey(ld)
	if _, ok := l.seen[key]; ok {
		l.duplicates++
		return false
	}
	l.seen[key] = struct{}{}
	return true
}

// Preload marks identity keys as already seen, used to seed the ledger from
// an archive so re-runs skip known leads.
func (l *Ledger) Preload(keys []string) {
	for _, k := range keys {
		l.seen[k] = struct{}{}
	}
}

// Duplicates returns how many leads were rejected as already seen.
func (l *Ledger) Duplicates() int {
	return l.duplicates
}

// Size returns how many distinct identity keys were recorded.
func (l *Ledger) Size() int {
	return len(l.seen)
}
