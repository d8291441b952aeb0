package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/genc/internal/ir"
)

// Run is one recorded invocation of a graph.
type Run struct {
	ID        string
	GraphHash string
	Args      []ir.Value

	// Result is nil when the run produced no value or failed.
	Result *string

	// Error is the failure text, empty on success.
	Error string
	Seq   int64
}

// WriteGraph stores n under its content hash and returns the hash.
// Uses ON CONFLICT(hash) DO NOTHING, so writing the same graph twice keeps
// the first row and its seq.
func (s *Store) WriteGraph(ctx context.Context, n ir.Node) (string, error) {
	hash, err := ir.GraphHash(n)
	if err != nil {
		return "", fmt.Errorf("write graph: %w", err)
	}
	body, err := ir.MarshalNode(n)
	if err != nil {
		return "", fmt.Errorf("write graph: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graphs (hash, body, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM graphs))
		ON CONFLICT(hash) DO NOTHING
	`, hash, string(body))
	if err != nil {
		return "", fmt.Errorf("write graph: %w", err)
	}
	return hash, nil
}

// WriteRun records a run and returns it with ID and Seq filled in. An
// empty ID is generated by the store's IDGenerator. The graph must have
// been written first.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	args, err := marshalArgs(run.Args)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	var result sql.NullString
	if run.Result != nil {
		result = sql.NullString{String: *run.Result, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO runs (id, graph_hash, args, result, error, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs))
		RETURNING seq
	`, run.ID, run.GraphHash, args, result, run.Error)
	if err := row.Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	return run, nil
}
