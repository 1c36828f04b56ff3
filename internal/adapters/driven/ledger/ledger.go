// Package ledger provides the in-memory deduplication ledger.
//
// The ledger is the sole correctness gate preventing the same price
// observation from being persisted or broadcast twice within one
// process lifetime. State is in-memory only: delivery across process
// restarts is at-least-once by design.
package ledger

import (
	"sync"

	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.DedupLedger = (*Ledger)(nil)

// Ledger is a mutex-guarded set of accepted observation signatures.
// It is shared by every per-source polling loop.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		seen: make(map[string]struct{}),
	}
}

// Seen reports whether the signature was already marked.
func (l *Ledger) Seen(signature string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[signature]
	return ok
}

// Mark records a signature as accepted.
func (l *Ledger) Mark(signature string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[signature] = struct{}{}
}

// Observe checks membership and inserts in one step. Returns true if
// the signature was already present (a duplicate), false after
// inserting a previously unseen signature.
func (l *Ledger) Observe(signature string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[signature]; ok {
		return true
	}
	l.seen[signature] = struct{}{}
	return false
}

// Len returns the number of recorded signatures.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
