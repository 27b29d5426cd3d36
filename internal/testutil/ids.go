// Package testutil holds helpers shared by stated's tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates deterministic run IDs: "<prefix>-0001",
// "<prefix>-0002", and so on.
//
// The same test with a fresh SequentialIDs records byte-identical run IDs,
// which keeps history output stable for golden comparison.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequentialIDs creates a generator. An empty prefix uses "run".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements store.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}

// Reset restarts the sequence. The next Generate returns "<prefix>-0001".
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
