package database

import "time"

// OutcomeRunning marks a run that has not finished yet
const OutcomeRunning = "running"

// ToolRun is one recorded execution of a tool
type ToolRun struct {
	ID          int64      `db:"id"`
	ToolID      string     `db:"tool_id"`
	ToolName    string     `db:"tool_name"`
	Kind        string     `db:"kind"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	DurationMs  *int64     `db:"duration_ms"`
	Outcome     string     `db:"outcome"`
	Status      string     `db:"status"`
	Iterations  int        `db:"iterations"`
}

// ToolStats aggregates the runs of one tool
type ToolStats struct {
	ToolID     string
	Runs       int
	Completed  int
	Matched    int
	Failed     int
	Stopped    int
	LastRunAt  *time.Time
	TotalIters int
}
