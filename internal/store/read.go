package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LastGeneration returns the most recent generation of a template. The
// boolean is false when the template was never generated.
func (s *Store) LastGeneration(ctx context.Context, template string) (*Generation, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, seq, template, output, input_hash, config_hash, output_hash, plan_hash, status
		FROM generations
		WHERE template = ?
		ORDER BY seq DESC
		LIMIT 1
	`, template)
	g, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("last generation: %w", err)
	}
	return g, true, nil
}

// LatestGenerations returns the most recent generation of every template
// ever recorded, ordered by template.
func (s *Store) LatestGenerations(ctx context.Context) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.run_id, g.seq, g.template, g.output, g.input_hash, g.config_hash, g.output_hash, g.plan_hash, g.status
		FROM generations g
		WHERE g.seq = (SELECT MAX(seq) FROM generations WHERE template = g.template)
		ORDER BY g.template COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query latest generations: %w", err)
	}
	defer rows.Close()

	gens := []Generation{}
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		gens = append(gens, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	return gens, nil
}

// IsFresh reports whether template needs no regeneration: its last
// generation has the given input and config fingerprints and its output
// still has the recorded fingerprint.
func (s *Store) IsFresh(ctx context.Context, template, inputHash, configHash, outputHash string) (bool, error) {
	g, ok, err := s.LastGeneration(ctx, template)
	if err != nil || !ok {
		return false, err
	}
	return g.InputHash == inputHash && g.ConfigHash == configHash && g.OutputHash == outputHash, nil
}

// History returns the most recent runs, newest first, with their
// generation counts. A limit of 0 or less returns every run.
func (s *Store) History(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT r.id, r.seq, r.command, r.config_hash, r.generator_version, COUNT(g.template)
		FROM runs r
		LEFT JOIN generations g ON g.run_id = r.id
		GROUP BY r.id
		ORDER BY r.seq DESC, r.id COLLATE BINARY ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Seq, &r.Command, &r.ConfigHash, &r.GeneratorVersion, &r.Generations); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunGenerations returns the generations of a run in seq order.
// Returns an empty slice (not nil) for an unknown run.
func (s *Store) RunGenerations(ctx context.Context, runID string) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, template, output, input_hash, config_hash, output_hash, plan_hash, status
		FROM generations
		WHERE run_id = ?
		ORDER BY seq ASC, template COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()

	gens := []Generation{}
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		gens = append(gens, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	return gens, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row scanner) (*Generation, error) {
	var g Generation
	err := row.Scan(
		&g.RunID,
		&g.Seq,
		&g.Template,
		&g.Output,
		&g.InputHash,
		&g.ConfigHash,
		&g.OutputHash,
		&g.PlanHash,
		&g.Status,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
