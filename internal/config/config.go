// Package config loads Settings.ini and the tool profiles file.
package config

import (
	"time"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/collection"
	"jordanella.com/game-helper-go/internal/cv"
	"jordanella.com/game-helper-go/internal/logging"
	"jordanella.com/game-helper-go/internal/ocr"
	"jordanella.com/game-helper-go/internal/window"
)

// AppConfig holds the application settings
type AppConfig struct {
	// [General]
	WindowTitle           string
	ProcessName           string
	EmergencyKey          string
	PollIntervalMs        int
	OverlayPollIntervalMs int
	WindowCheckIntervalMs int
	StopOnWindowLoss      bool
	ClickSettleMs         int
	ClickerIntervalMs     int
	MatchMethod           string
	LogLevel              string
	LogDir                string
	DatabasePath          string
	TemplatesPath         string
	ProfilesPath          string

	// [OCR]
	OCRBackend     string
	OnnxRuntimeLib string
	DetModel       string
	RecModel       string
	Dict           string
	OCRLanguage    string

	// [CollectionFiller]
	Tolerance       float64
	StuckRadius     float64
	TabRadius       float64
	MaxScrollPasses int
	ActionDelayMs   int
}

// NewDefaultConfig creates a config with default values
func NewDefaultConfig() *AppConfig {
	return &AppConfig{
		WindowTitle:           "",
		ProcessName:           "Game.exe",
		EmergencyKey:          "ESC",
		PollIntervalMs:        100,
		OverlayPollIntervalMs: 30,
		WindowCheckIntervalMs: 1000,
		StopOnWindowLoss:      false,
		ClickSettleMs:         int(actions.DefaultClickSettle / time.Millisecond),
		ClickerIntervalMs:     1000,
		MatchMethod:           "ssd",
		LogLevel:              "INFO",
		LogDir:                "logs",
		DatabasePath:          "data/runs.db",
		TemplatesPath:         "templates",
		ProfilesPath:          "profiles.yaml",

		OCRBackend:     "paddle",
		OnnxRuntimeLib: "onnxruntime.dll",
		DetModel:       "models/det.onnx",
		RecModel:       "models/rec.onnx",
		Dict:           "models/dict.txt",
		OCRLanguage:    "eng",

		Tolerance:       collection.DefaultTolerance,
		StuckRadius:     collection.StuckRadius,
		TabRadius:       collection.TabRadius,
		MaxScrollPasses: collection.MaxScrollPasses,
		ActionDelayMs:   int(collection.DefaultActionDelay / time.Millisecond),
	}
}

// Target returns how the game window is located
func (c *AppConfig) Target() window.Target {
	return window.Target{Title: c.WindowTitle, ProcessName: c.ProcessName}
}

// EmergencyStopKey parses EmergencyKey
func (c *AppConfig) EmergencyStopKey() (window.Key, error) {
	return window.ParseKey(c.EmergencyKey)
}

// OCRConfig returns the OCR backend settings
func (c *AppConfig) OCRConfig() ocr.Config {
	return ocr.Config{
		Backend:        c.OCRBackend,
		OnnxRuntimeLib: c.OnnxRuntimeLib,
		DetModel:       c.DetModel,
		RecModel:       c.RecModel,
		Dict:           c.Dict,
		Language:       c.OCRLanguage,
	}
}

// CollectionOptions returns the collection filler tuning
func (c *AppConfig) CollectionOptions() collection.Options {
	return collection.Options{
		Tolerance:       c.Tolerance,
		StuckRadius:     c.StuckRadius,
		TabRadius:       c.TabRadius,
		MaxScrollPasses: c.MaxScrollPasses,
		ActionDelay:     millis(c.ActionDelayMs),
	}
}

// RunnerOptions returns the macro runner delays
func (c *AppConfig) RunnerOptions() actions.RunnerOptions {
	return actions.RunnerOptions{ClickSettle: millis(c.ClickSettleMs)}
}

// Matcher returns the template matcher for the configured method
func (c *AppConfig) Matcher() cv.Matcher {
	if c.MatchMethod == "" || c.MatchMethod == "default" {
		return cv.DefaultMatcher()
	}
	return cv.PixelMatcher{Method: cv.ParseMatchMethod(c.MatchMethod)}
}

// LogLevelValue parses LogLevel, falling back to INFO
func (c *AppConfig) LogLevelValue() logging.LogLevel {
	level, err := logging.ParseLogLevel(c.LogLevel)
	if err != nil {
		return logging.LogLevelInfo
	}
	return level
}

func (c *AppConfig) PollInterval() time.Duration        { return millis(c.PollIntervalMs) }
func (c *AppConfig) OverlayPollInterval() time.Duration { return millis(c.OverlayPollIntervalMs) }
func (c *AppConfig) WindowCheckInterval() time.Duration { return millis(c.WindowCheckIntervalMs) }
func (c *AppConfig) ClickerInterval() time.Duration     { return millis(c.ClickerIntervalMs) }

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
