package store

import (
	"context"
	"testing"
)

func TestLastGeneration_NotFound(t *testing.T) {
	s := createTestStore(t)

	g, ok, err := s.LastGeneration(context.Background(), "missing.go")
	if err != nil {
		t.Fatalf("LastGeneration() failed: %v", err)
	}
	if ok || g != nil {
		t.Errorf("LastGeneration() = %+v, %v, want nil, false", g, ok)
	}
}

func TestLastGeneration_Newest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, hash := range []string{"v1", "v2"} {
		run, err := s.BeginRun(ctx, "generate", "cfg")
		if err != nil {
			t.Fatal(err)
		}
		g := testGeneration(run.ID, "conn.go")
		g.OutputHash = hash
		if err := s.RecordGeneration(ctx, g); err != nil {
			t.Fatal(err)
		}
	}

	g, ok, err := s.LastGeneration(ctx, "conn.go")
	if err != nil || !ok {
		t.Fatalf("LastGeneration() = %v, %v", ok, err)
	}
	if g.OutputHash != "v2" || g.RunID != "run-0002" {
		t.Errorf("LastGeneration() = %s/%s, want run-0002/v2", g.RunID, g.OutputHash)
	}
}

func TestLatestGenerations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.BeginRun(ctx, "generate", "cfg")
	if err != nil {
		t.Fatal(err)
	}
	for _, tmpl := range []string{"lock.go", "door.go"} {
		if err := s.RecordGeneration(ctx, testGeneration(first.ID, tmpl)); err != nil {
			t.Fatal(err)
		}
	}
	second, err := s.BeginRun(ctx, "watch", "cfg")
	if err != nil {
		t.Fatal(err)
	}
	g := testGeneration(second.ID, "door.go")
	g.OutputHash = "v2"
	if err := s.RecordGeneration(ctx, g); err != nil {
		t.Fatal(err)
	}

	gens, err := s.LatestGenerations(ctx)
	if err != nil {
		t.Fatalf("LatestGenerations() failed: %v", err)
	}
	if len(gens) != 2 {
		t.Fatalf("LatestGenerations() returned %d generations, want 2", len(gens))
	}
	if gens[0].Template != "door.go" || gens[0].OutputHash != "v2" || gens[0].RunID != second.ID {
		t.Errorf("gens[0] = %s/%s/%s, want door.go/v2/%s", gens[0].Template, gens[0].OutputHash, gens[0].RunID, second.ID)
	}
	if gens[1].Template != "lock.go" || gens[1].RunID != first.ID {
		t.Errorf("gens[1] = %s/%s, want lock.go/%s", gens[1].Template, gens[1].RunID, first.ID)
	}
}

func TestLatestGenerations_Empty(t *testing.T) {
	s := createTestStore(t)

	gens, err := s.LatestGenerations(context.Background())
	if err != nil {
		t.Fatalf("LatestGenerations() failed: %v", err)
	}
	if gens == nil || len(gens) != 0 {
		t.Errorf("LatestGenerations() = %v, want empty slice", gens)
	}
}

func TestIsFresh(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	fresh, err := s.IsFresh(ctx, "conn.go", "in-conn.go", "cfg", "out-conn.go")
	if err != nil {
		t.Fatal(err)
	}
	if fresh {
		t.Error("never generated template reported fresh")
	}

	run, err := s.BeginRun(ctx, "generate", "cfg")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RecordGeneration(ctx, testGeneration(run.ID, "conn.go")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name                  string
		input, config, output string
		want                  bool
	}{
		{"unchanged", "in-conn.go", "cfg", "out-conn.go", true},
		{"template edited", "edited", "cfg", "out-conn.go", false},
		{"config changed", "in-conn.go", "other", "out-conn.go", false},
		{"output edited", "in-conn.go", "cfg", "tampered", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.IsFresh(ctx, "conn.go", tt.input, tt.config, tt.output)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("IsFresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.BeginRun(ctx, "generate", "cfg")
	if err != nil {
		t.Fatal(err)
	}
	for _, tmpl := range []string{"a.go", "b.go"} {
		if err := s.RecordGeneration(ctx, testGeneration(first.ID, tmpl)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.BeginRun(ctx, "check", "cfg"); err != nil {
		t.Fatal(err)
	}

	runs, err := s.History(ctx, 0)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Command != "check" || runs[0].Generations != 0 {
		t.Errorf("runs[0] = %+v, want the check run with no generations", runs[0])
	}
	if runs[1].ID != first.ID || runs[1].Generations != 2 {
		t.Errorf("runs[1] = %+v, want %s with 2 generations", runs[1], first.ID)
	}

	limited, err := s.History(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Command != "check" {
		t.Errorf("History(1) = %+v, want only the newest run", limited)
	}
}

func TestHistory_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.History(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("History() = %#v, want empty non-nil slice", runs)
	}
}

func TestRunGenerations_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run, err := s.BeginRun(ctx, "generate", "cfg")
	if err != nil {
		t.Fatal(err)
	}
	for _, tmpl := range []string{"b.go", "a.go"} {
		g := testGeneration(run.ID, tmpl)
		if tmpl == "a.go" {
			g.Status = StatusCached
		}
		if err := s.RecordGeneration(ctx, g); err != nil {
			t.Fatal(err)
		}
	}

	gens, err := s.RunGenerations(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != 2 {
		t.Fatalf("got %d generations, want 2", len(gens))
	}
	if gens[0].Template != "b.go" || gens[1].Template != "a.go" {
		t.Errorf("order = %s, %s, want seq order b.go, a.go", gens[0].Template, gens[1].Template)
	}
	if gens[1].Status != StatusCached {
		t.Errorf("Status = %q, want %q", gens[1].Status, StatusCached)
	}

	none, err := s.RunGenerations(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("RunGenerations(missing) = %#v, want empty non-nil slice", none)
	}
}
