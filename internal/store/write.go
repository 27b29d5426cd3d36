package store

import (
	"context"
	"fmt"

	"github.com/roach88/stated/internal/ir"
)

// Generation statuses.
const (
	StatusGenerated = "generated" // output was written
	StatusCached    = "cached"    // output was up to date and left alone
)

// Run is one stated invocation that expanded templates.
type Run struct {
	ID               string `json:"id"`
	Seq              int64  `json:"seq"`
	Command          string `json:"command"`
	ConfigHash       string `json:"config_hash"`
	GeneratorVersion string `json:"generator_version"`
	Generations      int    `json:"generations"`
}

// Generation is the record of one template expanded within a run.
type Generation struct {
	RunID      string `json:"run_id"`
	Seq        int64  `json:"seq"`
	Template   string `json:"template"`
	Output     string `json:"output"`
	InputHash  string `json:"input_hash"`
	ConfigHash string `json:"config_hash"`
	OutputHash string `json:"output_hash"`
	PlanHash   string `json:"plan_hash"`
	Status     string `json:"status"`
}

// BeginRun records a new run and returns it.
func (s *Store) BeginRun(ctx context.Context, command, configHash string) (*Run, error) {
	run := &Run{
		ID:               s.ids.Generate(),
		Seq:              s.clock.Next(),
		Command:          command,
		ConfigHash:       configHash,
		GeneratorVersion: ir.GeneratorVersion,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, command, config_hash, generator_version)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Command,
		run.ConfigHash,
		run.GeneratorVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// RecordGeneration stamps g with the next seq and stores it. Recording the
// same template twice in one run keeps the first record.
func (s *Store) RecordGeneration(ctx context.Context, g *Generation) error {
	if g.Status != StatusGenerated && g.Status != StatusCached {
		return fmt.Errorf("record generation: invalid status %q", g.Status)
	}
	g.Seq = s.clock.Next()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations
		(run_id, seq, template, output, input_hash, config_hash, output_hash, plan_hash, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, template) DO NOTHING
	`,
		g.RunID,
		g.Seq,
		g.Template,
		g.Output,
		g.InputHash,
		g.ConfigHash,
		g.OutputHash,
		g.PlanHash,
		g.Status,
	)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	return nil
}
