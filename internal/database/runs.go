package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Run history. The tool layer opens a row when a run starts and closes it
// with the outcome once the worker exits.

// StartRun inserts a running row and returns its id
func (db *DB) StartRun(toolID, toolName, kind string) (int64, error) {
	var runID int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO tool_runs (tool_id, tool_name, kind, started_at, outcome)
			VALUES (?, ?, ?, ?, ?)
		`, toolID, toolName, kind, time.Now(), OutcomeRunning)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		runID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

// FinishRun stores the outcome of a run
func (db *DB) FinishRun(runID int64, outcome, status string, iterations int) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		var startedAt time.Time
		err := tx.QueryRow(`SELECT started_at FROM tool_runs WHERE id = ?`, runID).Scan(&startedAt)
		if err != nil {
			return fmt.Errorf("run %d: %w", runID, err)
		}

		completedAt := time.Now()
		duration := completedAt.Sub(startedAt).Milliseconds()

		_, err = tx.Exec(`
			UPDATE tool_runs
			SET completed_at = ?,
				duration_ms = ?,
				outcome = ?,
				status = ?,
				iterations = ?
			WHERE id = ?
		`, completedAt, duration, outcome, status, iterations, runID)
		return err
	})
}

// GetRun returns one run by id
func (db *DB) GetRun(runID int64) (*ToolRun, error) {
	run := &ToolRun{}
	err := db.conn.QueryRow(`
		SELECT id, tool_id, tool_name, kind, started_at, completed_at,
			duration_ms, outcome, status, iterations
		FROM tool_runs
		WHERE id = ?
	`, runID).Scan(
		&run.ID, &run.ToolID, &run.ToolName, &run.Kind, &run.StartedAt, &run.CompletedAt,
		&run.DurationMs, &run.Outcome, &run.Status, &run.Iterations,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RecentRuns returns the newest runs across all tools
func (db *DB) RecentRuns(limit int) ([]*ToolRun, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.Query(`
		SELECT id, tool_id, tool_name, kind, started_at, completed_at,
			duration_ms, outcome, status, iterations
		FROM tool_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*ToolRun{}
	for rows.Next() {
		run := &ToolRun{}
		err := rows.Scan(
			&run.ID, &run.ToolID, &run.ToolName, &run.Kind, &run.StartedAt, &run.CompletedAt,
			&run.DurationMs, &run.Outcome, &run.Status, &run.Iterations,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// MarkInterruptedRuns closes rows left running by a previous process
func (db *DB) MarkInterruptedRuns() (int64, error) {
	var affected int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE tool_runs
			SET outcome = 'interrupted', completed_at = ?
			WHERE outcome = ?
		`, time.Now(), OutcomeRunning)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	return affected, err
}

// GetToolStats aggregates the finished runs of one tool
func (db *DB) GetToolStats(toolID string) (*ToolStats, error) {
	stats := &ToolStats{ToolID: toolID}

	err := db.conn.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'matched' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'stopped' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(iterations), 0)
		FROM tool_runs
		WHERE tool_id = ?
	`, toolID).Scan(
		&stats.Runs, &stats.Completed, &stats.Matched, &stats.Failed, &stats.Stopped, &stats.TotalIters,
	)
	if err != nil {
		return nil, err
	}

	// Aggregates lose the column type, so the timestamp is read from the row
	var last time.Time
	err = db.conn.QueryRow(`
		SELECT started_at FROM tool_runs
		WHERE tool_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, toolID).Scan(&last)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, err
	default:
		stats.LastRunAt = &last
	}

	return stats, nil
}

// DeleteToolRuns removes the history of a deleted profile
func (db *DB) DeleteToolRuns(toolID string) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM tool_runs WHERE tool_id = ?`, toolID)
		return err
	})
}
