package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lastRunFile = "lastrun.json"
)

// RunState records the outcome of the most recent consolidation run. It is
// persisted as a JSON file in the .muninn/ directory so status commands can
// report when the store was last consolidated without opening it.
type RunState struct {
	// RunID identifies the consolidation run.
	RunID string `json:"run_id"`

	// FinishedAt is when the run completed.
	FinishedAt time.Time `json:"finished_at"`

	// Consolidated is how many memories the run touched.
	Consolidated int `json:"consolidated"`

	// Errors is how many per-memory failures the run absorbed.
	Errors int `json:"errors"`
}

// LoadRunState loads the last-run record from a target .muninn/lastrun.json.
// Returns nil, nil if no record exists (the store has never been consolidated).
// If overrideDir is non-empty, it is used instead of the default ~/.muninn/ location.
func (m *Manager) LoadRunState(overrideDir string) (*RunState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, lastRunFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last-run state: %w", err)
	}

	state := &RunState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing last-run state: %w", err)
	}

	return state, nil
}

// SaveRunState persists the last-run record to a target .muninn/lastrun.json.
func (m *Manager) SaveRunState(state *RunState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil run state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling last-run state: %w", err)
	}

	path := filepath.Join(dir, lastRunFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing last-run state: %w", err)
	}

	return nil
}

// ClearRunState removes the last-run record.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearRunState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, lastRunFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing last-run state: %w", err)
	}

	return nil
}
