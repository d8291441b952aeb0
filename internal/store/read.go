package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/genc/internal/ir"
)

// ReadGraph returns the graph stored under hash.
// Returns ErrNotFound if no graph has that hash.
func (s *Store) ReadGraph(ctx context.Context, hash string) (ir.Node, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM graphs WHERE hash = ?`, hash).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("graph %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query graph: %w", err)
	}
	n, err := ir.UnmarshalNode([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode graph %s: %w", hash, err)
	}
	return n, nil
}

// ReadRun returns the run with the given ID.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, graph_hash, args, result, error, seq
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns the runs of one graph, or every run when graphHash is
// empty. Results are ordered deterministically: ORDER BY seq ASC, id ASC
// COLLATE BINARY.
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) ListRuns(ctx context.Context, graphHash string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, graph_hash, args, result, error, seq
		FROM runs
		WHERE ? = '' OR graph_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, graphHash, graphHash)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run    Run
		args   string
		result sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.GraphHash, &args, &result, &run.Error, &run.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if run.Args, err = unmarshalArgs(args); err != nil {
		return Run{}, err
	}
	if result.Valid {
		s := result.String
		run.Result = &s
	}
	return run, nil
}
