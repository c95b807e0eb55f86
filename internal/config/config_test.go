package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/ocr"
	"jordanella.com/game-helper-go/internal/tools"
	"jordanella.com/game-helper-go/internal/window"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestSaveAndLoadINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.ini")

	want := NewDefaultConfig()
	want.WindowTitle = "Game Client"
	want.EmergencyKey = "F9"
	want.StopOnWindowLoss = true
	want.OCRBackend = "tesseract"
	want.Tolerance = 0.75
	want.MaxScrollPasses = 5

	if err := SaveToINI(want, path); err != nil {
		t.Fatalf("SaveToINI failed: %v", err)
	}
	got, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("LoadFromINI failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadPartialINIKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.ini")
	writeFile(t, path, "[General]\nprocessName = Other.exe\n\n[CollectionFiller]\nactionDelayMs = 150\n")

	config, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("LoadFromINI failed: %v", err)
	}
	if config.ProcessName != "Other.exe" {
		t.Errorf("Expected processName override, got %q", config.ProcessName)
	}
	if config.EmergencyKey != "ESC" || config.PollIntervalMs != 100 {
		t.Errorf("Expected defaults for missing keys, got %+v", config)
	}
	if opts := config.CollectionOptions(); opts.ActionDelay != 150*time.Millisecond {
		t.Errorf("Expected 150ms action delay, got %v", opts.ActionDelay)
	}

	key, err := config.EmergencyStopKey()
	if err != nil || key != window.KeyEscape {
		t.Errorf("Expected ESC, got %v %v", key, err)
	}
}

func TestLoadINIValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no target", "[General]\nwindowTitle =\nprocessName =\n"},
		{"bad key", "[General]\nemergencyKey = Banana\n"},
		{"tolerance above one", "[CollectionFiller]\ntolerance = 1.5\n"},
		{"zero poll", "[General]\npollIntervalMs = 0\n"},
		{"unknown backend", "[OCR]\nbackend = magic\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "Settings.ini")
			writeFile(t, path, tt.content)
			if _, err := LoadFromINI(path); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "Settings.ini")

	config, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected defaults to be written: %v", err)
	}
	if !reflect.DeepEqual(config, NewDefaultConfig()) {
		t.Errorf("Expected defaults, got %+v", config)
	}
}

func TestProfilesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")

	click := coords.Point{X: 40, Y: 90}
	region := coords.Rect{Left: 10, Top: 20, Width: 200, Height: 30}
	macro := actions.Settings{
		Name: "Rings",
		Actions: actions.Sequence{
			&actions.Click{Coordinate: &click, Button: window.ButtonLeft, Method: actions.ClickAsync},
			&actions.Delay{Milliseconds: 250},
			&actions.OcrSearch{
				Region:      &region,
				Preprocess:  ocr.DefaultPreprocess(),
				Decode:      ocr.Decode{Strategy: ocr.BeamSearch, BeamWidth: 5},
				TargetStat:  "Defense",
				TargetValue: 20,
				Comparison:  ocr.GreaterThanOrEqual,
				NameMatch:   ocr.NameContains,
			},
		},
		Loop: actions.Loop{Enabled: true, Infinite: true},
	}
	area := coords.NormalizedRect{X: 0.25, Y: 0.5, Width: 0.25, Height: 0.125}
	page := coords.NormalizedPoint{X: 0.1, Y: 0.9}
	filler := tools.CollectionFillerSettings{Items: &area, Tolerance: 0.7}
	filler.Pages[1] = &page

	want := []tools.Profile{
		{ID: "a", Name: "Rings", Kind: tools.KindOcrMacro, Macro: &macro},
		{ID: "b", Name: "Filler", Kind: tools.KindCollectionFiller, CollectionFiller: &filler},
		{ID: "c", Name: "Clicker", Kind: tools.KindImageClicker, ImageClicker: &tools.ImageClickerSettings{Template: "chest", SearchArea: &area}},
	}

	if err := SaveProfiles(path, want); err != nil {
		t.Fatalf("SaveProfiles failed: %v", err)
	}
	got, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadProfilesMissingFile(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil || profiles != nil {
		t.Errorf("Expected no profiles and no error, got %v %v", profiles, err)
	}
}

func TestLoadProfilesRejectsUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeFile(t, path, "profiles:\n  - id: x\n    name: X\n    kind: teleporter\n")

	if _, err := LoadProfiles(path); err == nil {
		t.Error("Expected an error for an unknown kind")
	}
}
