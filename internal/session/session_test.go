package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jordanella.com/game-helper-go/internal/config"
	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/tools"
	"jordanella.com/game-helper-go/internal/window/windowtest"
)

func testConfig(t *testing.T) *config.AppConfig {
	dir := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.DatabasePath = filepath.Join(dir, "data", "runs.db")
	cfg.TemplatesPath = filepath.Join(dir, "templates")
	cfg.ProfilesPath = filepath.Join(dir, "profiles.yaml")
	return cfg
}

func openTestSession(t *testing.T, cfg *config.AppConfig) *Session {
	desktop := windowtest.New(5, coords.Geometry{Width: 800, Height: 600})
	s, err := Open(cfg, Options{Desktop: desktop})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenWritesDefaultProfiles(t *testing.T) {
	cfg := testConfig(t)
	s := openTestSession(t, cfg)

	if got := len(s.Manager.Tools()); got != len(tools.Kinds) {
		t.Errorf("Expected one default profile per kind, got %d", got)
	}
	if s.DB == nil {
		t.Fatal("Expected run history to be enabled")
	}
	if _, err := os.Stat(cfg.ProfilesPath); err != nil {
		t.Errorf("Expected default profiles on disk: %v", err)
	}

	profiles, err := config.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	if len(profiles) != len(tools.Kinds) {
		t.Errorf("Expected %d saved profiles, got %d", len(tools.Kinds), len(profiles))
	}
}

func TestRunIsRecorded(t *testing.T) {
	s := openTestSession(t, testConfig(t))

	macros := s.Manager.ToolsOfKind(tools.KindCustomMacro)
	if len(macros) != 1 {
		t.Fatalf("Expected one custom macro, got %d", len(macros))
	}
	macro := macros[0]
	if err := s.Manager.Start(macro.ID()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !macro.Wait(5 * time.Second) {
		t.Fatal("Macro did not finish")
	}

	// The finish is recorded right after the worker reports done
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runs, err := s.DB.RecentRuns(10)
		if err != nil {
			t.Fatalf("RecentRuns() error = %v", err)
		}
		if len(runs) == 1 && runs[0].Outcome == "completed" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Completed run not found in history")
}

func TestOpenRejectsBadEmergencyKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.EmergencyKey = "NOT_A_KEY"

	desktop := windowtest.New(5, coords.Geometry{Width: 800, Height: 600})
	if s, err := Open(cfg, Options{Desktop: desktop}); err == nil {
		s.Close()
		t.Fatal("Expected an invalid emergency key to fail")
	}
}

func TestOpenWithoutHistory(t *testing.T) {
	desktop := windowtest.New(5, coords.Geometry{Width: 800, Height: 600})
	s, err := Open(testConfig(t), Options{Desktop: desktop, NoHistory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if s.DB != nil {
		t.Error("Expected no database")
	}
}

func TestCloseLogsDroppedEvents(t *testing.T) {
	cfg := testConfig(t)
	desktop := windowtest.New(5, coords.Geometry{Width: 800, Height: 600})
	s, err := Open(cfg, Options{Desktop: desktop, NoHistory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	s.Bus.Stop()
	s.Bus.Publish(events.NewEmergencyStopEvent("ESC", 0))
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	logs, _ := filepath.Glob(filepath.Join(cfg.LogDir, "helper_*.log"))
	if len(logs) != 1 {
		t.Fatalf("Expected one session log, got %v", logs)
	}
	data, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "1 event(s) published during shutdown were dropped") {
		t.Errorf("Expected the dropped event to be logged, got:\n%s", data)
	}
}
