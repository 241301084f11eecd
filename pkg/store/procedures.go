package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/procedures"
)

// GetProcedure returns one procedure by id.
func (s *Store) GetProcedure(ctx context.Context, id string) (*memory.Procedure, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, memory_id, title, steps, version, success_count, failure_count,
			is_reliable, evolution_log, created_at, updated_at
		FROM procedures WHERE id = ?`, id)
	proc, err := scanProcedure(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: procedure %s", memory.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return proc, nil
}

// ListProcedures returns all procedures, most recently updated first.
func (s *Store) ListProcedures(ctx context.Context) ([]memory.Procedure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, memory_id, title, steps, version, success_count, failure_count,
			is_reliable, evolution_log, created_at, updated_at
		FROM procedures ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing procedures: %v", memory.ErrStorage, err)
	}
	defer rows.Close()

	var out []memory.Procedure
	for rows.Next() {
		proc, err := scanProcedure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *proc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating procedures: %v", memory.ErrStorage, err)
	}
	return out, nil
}

// ProcedureFeedback folds one execution outcome into a stored procedure and
// returns the updated record.
func (s *Store) ProcedureFeedback(ctx context.Context, id string, success bool, failedAtStep int, note string) (*memory.Procedure, error) {
	proc, err := s.GetProcedure(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	procedures.ApplyFeedback(proc, success, failedAtStep, note, now)

	stepsJSON, _ := json.Marshal(proc.Steps)
	logJSON, _ := json.Marshal(proc.EvolutionLog)
	if _, err := s.db.ExecContext(ctx, `
		UPDATE procedures SET
			steps = ?,
			version = ?,
			success_count = ?,
			failure_count = ?,
			is_reliable = ?,
			evolution_log = ?,
			updated_at = ?
		WHERE id = ?`,
		string(stepsJSON), proc.Version, proc.SuccessCount, proc.FailureCount,
		boolToInt(proc.Reliable), string(logJSON), proc.UpdatedAt, proc.ID,
	); err != nil {
		return nil, fmt.Errorf("%w: updating procedure: %v", memory.ErrStorage, err)
	}

	s.logger.Debug("procedure feedback applied",
		zap.String("id", proc.ID),
		zap.Bool("success", success),
		zap.Int("version", proc.Version),
		zap.Bool("reliable", proc.Reliable),
	)
	return proc, nil
}

func scanProcedure(row rowScanner) (*memory.Procedure, error) {
	var proc memory.Procedure
	var stepsJSON, logJSON string
	var reliable int
	if err := row.Scan(&proc.ID, &proc.MemoryID, &proc.Title, &stepsJSON,
		&proc.Version, &proc.SuccessCount, &proc.FailureCount, &reliable,
		&logJSON, &proc.CreatedAt, &proc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scanning procedure: %v", memory.ErrStorage, err)
	}
	proc.Reliable = reliable != 0
	if err := json.Unmarshal([]byte(stepsJSON), &proc.Steps); err != nil {
		return nil, fmt.Errorf("%w: corrupt steps for %s: %v", memory.ErrStorage, proc.ID, err)
	}
	if err := json.Unmarshal([]byte(logJSON), &proc.EvolutionLog); err != nil {
		return nil, fmt.Errorf("%w: corrupt evolution log for %s: %v", memory.ErrStorage, proc.ID, err)
	}
	return &proc, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
