package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/stated/internal/testutil"
)

// createTestStore opens a fresh store with deterministic run IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDs("run")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testGeneration(runID, template string) *Generation {
	return &Generation{
		RunID:      runID,
		Template:   template,
		Output:     template[:len(template)-3] + "_stated.go",
		InputHash:  "in-" + template,
		ConfigHash: "cfg",
		OutputHash: "out-" + template,
		PlanHash:   "plan-" + template,
		Status:     StatusGenerated,
	}
}
