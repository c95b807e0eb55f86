package gui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/database"
	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/tools"
)

// describeEvent turns a bus event into a log line
func describeEvent(e events.Event) (LogLevel, string) {
	name, _ := e.Data["tool_name"].(string)
	status, _ := e.Data["status"].(string)

	switch e.Type {
	case events.EventTypeToolStarted:
		return LogLevelInfo, fmt.Sprintf("%s started", name)
	case events.EventTypeToolCompleted, events.EventTypeToolMatched:
		return LogLevelInfo, fmt.Sprintf("%s finished: %s", name, status)
	case events.EventTypeToolStopped:
		return LogLevelInfo, fmt.Sprintf("%s stopped", name)
	case events.EventTypeToolFailed:
		return LogLevelError, fmt.Sprintf("%s failed: %s", name, status)
	case events.EventTypeProfileAdded:
		return LogLevelInfo, fmt.Sprintf("Profile %s added", name)
	case events.EventTypeProfileDeleted:
		return LogLevelInfo, fmt.Sprintf("Profile %s deleted", name)
	case events.EventTypeCalibrationCompleted:
		return LogLevelInfo, fmt.Sprintf("Calibrated %v: %v", e.Data["field"], e.Data["result"])
	case events.EventTypeWindowLost:
		return LogLevelWarn, "Game window lost"
	case events.EventTypeWindowFound:
		return LogLevelInfo, "Game window found"
	case events.EventTypeEmergencyStop:
		return LogLevelWarn, fmt.Sprintf("Emergency stop (%v): %v tool(s) stopped", e.Data["key"], e.Data["tools_stopped"])
	case events.EventTypeError:
		return LogLevelError, fmt.Sprintf("%v: %v", e.Data["component"], e.Data["error"])
	}
	return LogLevelDebug, string(e.Type)
}

// formatRun renders one history row
func formatRun(r database.ToolRun) string {
	duration := "running"
	if r.DurationMs != nil {
		duration = formatDuration(time.Duration(*r.DurationMs) * time.Millisecond)
	}
	line := fmt.Sprintf("%s  %s  %s  %s", r.StartedAt.Local().Format("01-02 15:04:05"), r.ToolName, r.Outcome, duration)
	if r.Iterations > 0 {
		line += fmt.Sprintf("  x%d", r.Iterations)
	}
	return line
}

// formatStats renders the summary line of one tool
func formatStats(s *database.ToolStats) string {
	if s == nil || s.Runs == 0 {
		return "No runs recorded"
	}
	last := "never"
	if s.LastRunAt != nil {
		last = s.LastRunAt.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%d runs: %d completed, %d matched, %d stopped, %d failed. Last run %s",
		s.Runs, s.Completed, s.Matched, s.Stopped, s.Failed, last)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

// fieldButtonText labels a calibration button
func fieldButtonText(f tools.Field, pending bool) string {
	switch {
	case pending:
		return fmt.Sprintf("%s: click in game...", f.Label)
	case f.Set:
		return fmt.Sprintf("%s (set)", f.Label)
	}
	return fmt.Sprintf("Set %s", f.Label)
}

// macroYAML renders a macro for the editor
func macroYAML(s actions.Settings) (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal macro: %w", err)
	}
	return string(data), nil
}

// parseMacroYAML reads the editor text back into a validated macro
func parseMacroYAML(text string) (actions.Settings, error) {
	var s actions.Settings
	if err := yaml.Unmarshal([]byte(text), &s); err != nil {
		return actions.Settings{}, fmt.Errorf("invalid macro YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return actions.Settings{}, err
	}
	return s, nil
}

// readMacroFile loads a macro file as editor text
func readMacroFile(path string) (string, error) {
	s, err := actions.LoadSettingsFile(path)
	if err != nil {
		return "", err
	}
	if err := s.Validate(); err != nil {
		return "", fmt.Errorf("macro file %s: %w", path, err)
	}
	return macroYAML(s)
}

// writeMacroFile saves the editor text under name
func writeMacroFile(path, name, text string) error {
	s, err := parseMacroYAML(text)
	if err != nil {
		return err
	}
	s.Name = name
	return actions.SaveSettingsFile(path, s)
}

// parseOptionalFloat reads an entry where empty means zero
func parseOptionalFloat(label, text string, min, max float64) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("%s must be a number between %g and %g", label, min, max)
	}
	return v, nil
}

// parseOptionalInt reads a non-negative entry where empty means zero
func parseOptionalInt(label, text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(text)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a whole number >= 0", label)
	}
	return v, nil
}

func formatOptionalFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
