package gui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/calibration"
	"jordanella.com/game-helper-go/internal/database"
	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/tools"
)

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		name      string
		event     events.Event
		wantLevel LogLevel
		contains  string
	}{
		{"started", events.NewToolStartedEvent("id", "Reroll", "ocr_macro"), LogLevelInfo, "Reroll started"},
		{"failed", events.NewToolFinishedEvent(events.EventTypeToolFailed, "id", "Reroll", "Error: no OCR", 0), LogLevelError, "Error: no OCR"},
		{"window lost", events.NewWindowEvent(events.EventTypeWindowLost, 7), LogLevelWarn, "window lost"},
		{"emergency", events.NewEmergencyStopEvent("ESC", 2), LogLevelWarn, "2 tool(s)"},
		{"error", events.NewErrorEvent("tools", "calibration", errors.New("boom"), nil), LogLevelError, "calibration: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, msg := describeEvent(tt.event)
			if level != tt.wantLevel {
				t.Errorf("level = %v, want %v", level, tt.wantLevel)
			}
			if !strings.Contains(msg, tt.contains) {
				t.Errorf("message %q does not contain %q", msg, tt.contains)
			}
		})
	}
}

func TestFormatRun(t *testing.T) {
	ms := int64(1500)
	run := database.ToolRun{
		ToolName:   "Clicker",
		StartedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local),
		DurationMs: &ms,
		Outcome:    "completed",
		Iterations: 4,
	}
	got := formatRun(run)
	for _, want := range []string{"03-01 12:00:00", "Clicker", "completed", "1.5s", "x4"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatRun() = %q, missing %q", got, want)
		}
	}

	run.DurationMs = nil
	if !strings.Contains(formatRun(run), "running") {
		t.Error("Expected an unfinished run to show as running")
	}
}

func TestFormatStats(t *testing.T) {
	if got := formatStats(nil); got != "No runs recorded" {
		t.Errorf("formatStats(nil) = %q", got)
	}
	got := formatStats(&database.ToolStats{Runs: 3, Completed: 1, Matched: 1, Failed: 1})
	if !strings.HasPrefix(got, "3 runs: 1 completed, 1 matched, 0 stopped, 1 failed") {
		t.Errorf("formatStats() = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{2500 * time.Millisecond, "2.5s"},
		{95 * time.Second, "1m35s"},
		{2*time.Hour + 5*time.Minute, "2h05m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFieldButtonText(t *testing.T) {
	f := tools.Field{Key: "search_area", Label: "Search area", Mode: calibration.ModeArea}
	if got := fieldButtonText(f, false); got != "Set Search area" {
		t.Errorf("unset field = %q", got)
	}
	f.Set = true
	if got := fieldButtonText(f, false); got != "Search area (set)" {
		t.Errorf("set field = %q", got)
	}
	if got := fieldButtonText(f, true); !strings.Contains(got, "click in game") {
		t.Errorf("pending field = %q", got)
	}
}

func TestMacroYAMLRoundTrip(t *testing.T) {
	original := tools.DefaultCustomMacro("Farm")
	text, err := macroYAML(original)
	if err != nil {
		t.Fatalf("macroYAML() error = %v", err)
	}

	parsed, err := parseMacroYAML(text)
	if err != nil {
		t.Fatalf("parseMacroYAML() error = %v", err)
	}
	if len(parsed.Actions) != len(original.Actions) {
		t.Fatalf("Expected %d actions, got %d", len(original.Actions), len(parsed.Actions))
	}
	if _, ok := parsed.Actions[1].(*actions.Delay); !ok {
		t.Errorf("Expected a delay as second action, got %T", parsed.Actions[1])
	}
}

func TestParseMacroYAMLRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"no actions", "name: x\nactions: []\n", actions.ErrNoActions},
		{"unknown action", "name: x\nactions:\n  - action: jump\n", nil},
		{"not yaml", "actions: [", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseMacroYAML(tt.text)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMacroFileRoundTrip(t *testing.T) {
	original := tools.DefaultCustomMacro("Farm")
	text, err := macroYAML(original)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "farm.yaml")
	if err := writeMacroFile(path, "Exported", text); err != nil {
		t.Fatalf("writeMacroFile() error = %v", err)
	}
	loaded, err := actions.LoadSettingsFile(path)
	if err != nil {
		t.Fatalf("LoadSettingsFile() error = %v", err)
	}
	if loaded.Name != "Exported" || len(loaded.Actions) != len(original.Actions) {
		t.Errorf("Unexpected exported macro %+v", loaded)
	}

	back, err := readMacroFile(path)
	if err != nil {
		t.Fatalf("readMacroFile() error = %v", err)
	}
	if !strings.Contains(back, "name: Exported") {
		t.Errorf("Expected the file name in the editor text, got:\n%s", back)
	}
}

func TestMacroFileRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := writeMacroFile(path, "x", "name: x\nactions: []\n"); !errors.Is(err, actions.ErrNoActions) {
		t.Errorf("writeMacroFile() = %v, want ErrNoActions", err)
	}
	if err := actions.SaveSettingsFile(path, actions.Settings{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := readMacroFile(path); !errors.Is(err, actions.ErrNoActions) {
		t.Errorf("readMacroFile() = %v, want ErrNoActions", err)
	}
}

func TestParseOptionalNumbers(t *testing.T) {
	if v, err := parseOptionalFloat("Threshold", "", 0, 1); err != nil || v != 0 {
		t.Errorf("empty float = %v, %v", v, err)
	}
	if v, err := parseOptionalFloat("Threshold", " 0.9 ", 0, 1); err != nil || v != 0.9 {
		t.Errorf("0.9 = %v, %v", v, err)
	}
	if _, err := parseOptionalFloat("Threshold", "1.5", 0, 1); err == nil {
		t.Error("Expected out-of-range threshold to fail")
	}
	if _, err := parseOptionalInt("Interval", "-3"); err == nil {
		t.Error("Expected negative interval to fail")
	}
	if v, err := parseOptionalInt("Interval", "250"); err != nil || v != 250 {
		t.Errorf("250 = %v, %v", v, err)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher()
	for i := 0; i < cap(d.events)+10; i++ {
		d.Post(logEvent(LogLevelInfo, "test", "x"))
	}
	if len(d.events) != cap(d.events) {
		t.Errorf("Expected a full queue, got %d/%d", len(d.events), cap(d.events))
	}

	var got []string
	d.Subscribe(UIEventLog, func(e UIEvent) {
		got = append(got, e.Data["message"].(string))
	})
	d.dispatch(logEvent(LogLevelWarn, "test", "hello"))
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("dispatch() delivered %v", got)
	}
}
