package database

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenAndMigrate(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	// Second run is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to re-run migrations: %v", err)
	}

	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != LatestVersion() {
		t.Errorf("Expected version %d, got %d", LatestVersion(), version)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.StartRun("tool-1", "Daily macro", "custom_macro")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Outcome != OutcomeRunning || run.CompletedAt != nil || run.DurationMs != nil {
		t.Errorf("Expected an open run, got %+v", run)
	}

	if err := db.FinishRun(runID, "matched", "MATCH FOUND: Defense 21", 4); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err = db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Outcome != "matched" || run.Iterations != 4 || run.Status != "MATCH FOUND: Defense 21" {
		t.Errorf("Unexpected finished run %+v", run)
	}
	if run.CompletedAt == nil || run.DurationMs == nil || *run.DurationMs < 0 {
		t.Errorf("Expected completion time and duration, got %+v", run)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	db := openTestDB(t)

	if err := db.FinishRun(999, "completed", "", 0); err == nil {
		t.Error("Expected an error for an unknown run")
	}
}

func TestRecentRunsAndStats(t *testing.T) {
	db := openTestDB(t)

	outcomes := []string{"completed", "stopped", "completed", "failed"}
	for i, outcome := range outcomes {
		id, err := db.StartRun("tool-a", "Clicker", "image_clicker")
		if err != nil {
			t.Fatalf("StartRun %d failed: %v", i, err)
		}
		if err := db.FinishRun(id, outcome, "", i+1); err != nil {
			t.Fatalf("FinishRun %d failed: %v", i, err)
		}
	}
	if _, err := db.StartRun("tool-b", "Filler", "collection_filler"); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	runs, err := db.RecentRuns(3)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	if runs[0].ToolID != "tool-b" {
		t.Errorf("Expected newest run first, got %s", runs[0].ToolID)
	}

	stats, err := db.GetToolStats("tool-a")
	if err != nil {
		t.Fatalf("GetToolStats failed: %v", err)
	}
	if stats.Runs != 4 || stats.Completed != 2 || stats.Stopped != 1 || stats.Failed != 1 || stats.Matched != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if stats.TotalIters != 1+2+3+4 {
		t.Errorf("Expected 10 iterations, got %d", stats.TotalIters)
	}
	if stats.LastRunAt == nil {
		t.Error("Expected LastRunAt to be set")
	}

	empty, err := db.GetToolStats("missing")
	if err != nil {
		t.Fatalf("GetToolStats failed: %v", err)
	}
	if empty.Runs != 0 || empty.LastRunAt != nil {
		t.Errorf("Expected empty stats, got %+v", empty)
	}
}

func TestMarkInterruptedRuns(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 2; i++ {
		if _, err := db.StartRun("tool-a", "Clicker", "image_clicker"); err != nil {
			t.Fatalf("StartRun failed: %v", err)
		}
	}

	n, err := db.MarkInterruptedRuns()
	if err != nil {
		t.Fatalf("MarkInterruptedRuns failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 interrupted runs, got %d", n)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats["tool_runs"] != 2 {
		t.Errorf("Expected 2 rows, got %v", stats)
	}
}

func TestDeleteToolRuns(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.StartRun("tool-a", "Clicker", "image_clicker"); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := db.DeleteToolRuns("tool-a"); err != nil {
		t.Fatalf("DeleteToolRuns failed: %v", err)
	}
	runs, err := db.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected no runs, got %d", len(runs))
	}
}

func TestRollbackTo(t *testing.T) {
	db := openTestDB(t)

	if err := db.RollbackTo(1); err != nil {
		t.Fatalf("RollbackTo failed: %v", err)
	}
	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}
	if _, err := db.StartRun("tool-a", "x", "y"); err == nil {
		t.Error("Expected tool_runs to be gone")
	}

	// Migrating again restores the table
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if _, err := db.StartRun("tool-a", "x", "y"); err != nil {
		t.Errorf("StartRun after re-migration failed: %v", err)
	}
}

func TestBackupAndVacuum(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.StartRun("tool-a", "Clicker", "image_clicker"); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := db.Vacuum(); err != nil {
		t.Fatalf("Vacuum failed: %v", err)
	}

	backupPath := filepath.Join(t.TempDir(), "backup", "runs.db")
	if err := db.Backup(backupPath); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	backup, err := Open(backupPath)
	if err != nil {
		t.Fatalf("Failed to open backup: %v", err)
	}
	defer backup.Close()

	runs, err := backup.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns on backup failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected 1 run in backup, got %d", len(runs))
	}
}
