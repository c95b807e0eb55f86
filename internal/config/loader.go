package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"jordanella.com/game-helper-go/internal/window"
)

// LoadFromINI loads configuration from a Settings.ini file. Missing keys
// keep their defaults.
func LoadFromINI(path string) (*AppConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	d := NewDefaultConfig()
	config := &AppConfig{}

	general := cfg.Section("General")
	config.WindowTitle = general.Key("windowTitle").MustString(d.WindowTitle)
	config.ProcessName = general.Key("processName").MustString(d.ProcessName)
	config.EmergencyKey = general.Key("emergencyKey").MustString(d.EmergencyKey)
	config.PollIntervalMs = general.Key("pollIntervalMs").MustInt(d.PollIntervalMs)
	config.OverlayPollIntervalMs = general.Key("overlayPollIntervalMs").MustInt(d.OverlayPollIntervalMs)
	config.WindowCheckIntervalMs = general.Key("windowCheckIntervalMs").MustInt(d.WindowCheckIntervalMs)
	config.StopOnWindowLoss = general.Key("stopOnWindowLoss").MustBool(d.StopOnWindowLoss)
	config.ClickSettleMs = general.Key("clickSettleMs").MustInt(d.ClickSettleMs)
	config.ClickerIntervalMs = general.Key("clickerIntervalMs").MustInt(d.ClickerIntervalMs)
	config.MatchMethod = strings.ToLower(general.Key("matchMethod").MustString(d.MatchMethod))
	config.LogLevel = general.Key("logLevel").MustString(d.LogLevel)
	config.LogDir = general.Key("logDir").MustString(d.LogDir)
	config.DatabasePath = general.Key("databasePath").MustString(d.DatabasePath)
	config.TemplatesPath = general.Key("templatesPath").MustString(d.TemplatesPath)
	config.ProfilesPath = general.Key("profilesPath").MustString(d.ProfilesPath)

	ocrSection := cfg.Section("OCR")
	config.OCRBackend = strings.ToLower(ocrSection.Key("backend").MustString(d.OCRBackend))
	config.OnnxRuntimeLib = ocrSection.Key("onnxRuntimeLib").MustString(d.OnnxRuntimeLib)
	config.DetModel = ocrSection.Key("detModel").MustString(d.DetModel)
	config.RecModel = ocrSection.Key("recModel").MustString(d.RecModel)
	config.Dict = ocrSection.Key("dict").MustString(d.Dict)
	config.OCRLanguage = ocrSection.Key("language").MustString(d.OCRLanguage)

	filler := cfg.Section("CollectionFiller")
	config.Tolerance = filler.Key("tolerance").MustFloat64(d.Tolerance)
	config.StuckRadius = filler.Key("stuckRadius").MustFloat64(d.StuckRadius)
	config.TabRadius = filler.Key("tabRadius").MustFloat64(d.TabRadius)
	config.MaxScrollPasses = filler.Key("maxScrollPasses").MustInt(d.MaxScrollPasses)
	config.ActionDelayMs = filler.Key("actionDelayMs").MustInt(d.ActionDelayMs)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadOrCreate loads path, writing the defaults there first when it does not exist
func LoadOrCreate(path string) (*AppConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		config := NewDefaultConfig()
		if err := SaveToINI(config, path); err != nil {
			return nil, err
		}
		return config, nil
	}
	return LoadFromINI(path)
}

// Validate rejects values no component can work with
func (c *AppConfig) Validate() error {
	if c.WindowTitle == "" && c.ProcessName == "" {
		return fmt.Errorf("either windowTitle or processName must be set")
	}
	if _, err := window.ParseKey(c.EmergencyKey); err != nil {
		return fmt.Errorf("emergencyKey: %w", err)
	}
	if c.Tolerance <= 0 || c.Tolerance > 1 {
		return fmt.Errorf("tolerance must be in (0, 1], got %v", c.Tolerance)
	}
	if c.PollIntervalMs <= 0 || c.OverlayPollIntervalMs <= 0 || c.WindowCheckIntervalMs <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	switch c.OCRBackend {
	case "paddle", "tesseract":
	default:
		return fmt.Errorf("unknown OCR backend %q", c.OCRBackend)
	}
	return nil
}

// SaveToINI saves configuration to an INI file
func SaveToINI(config *AppConfig, path string) error {
	cfg := ini.Empty()

	general := cfg.Section("General")
	general.Key("windowTitle").SetValue(config.WindowTitle)
	general.Key("processName").SetValue(config.ProcessName)
	general.Key("emergencyKey").SetValue(config.EmergencyKey)
	general.Key("pollIntervalMs").SetValue(fmt.Sprintf("%d", config.PollIntervalMs))
	general.Key("overlayPollIntervalMs").SetValue(fmt.Sprintf("%d", config.OverlayPollIntervalMs))
	general.Key("windowCheckIntervalMs").SetValue(fmt.Sprintf("%d", config.WindowCheckIntervalMs))
	general.Key("stopOnWindowLoss").SetValue(fmt.Sprintf("%t", config.StopOnWindowLoss))
	general.Key("clickSettleMs").SetValue(fmt.Sprintf("%d", config.ClickSettleMs))
	general.Key("clickerIntervalMs").SetValue(fmt.Sprintf("%d", config.ClickerIntervalMs))
	general.Key("matchMethod").SetValue(config.MatchMethod)
	general.Key("logLevel").SetValue(config.LogLevel)
	general.Key("logDir").SetValue(config.LogDir)
	general.Key("databasePath").SetValue(config.DatabasePath)
	general.Key("templatesPath").SetValue(config.TemplatesPath)
	general.Key("profilesPath").SetValue(config.ProfilesPath)

	ocrSection := cfg.Section("OCR")
	ocrSection.Key("backend").SetValue(config.OCRBackend)
	ocrSection.Key("onnxRuntimeLib").SetValue(config.OnnxRuntimeLib)
	ocrSection.Key("detModel").SetValue(config.DetModel)
	ocrSection.Key("recModel").SetValue(config.RecModel)
	ocrSection.Key("dict").SetValue(config.Dict)
	ocrSection.Key("language").SetValue(config.OCRLanguage)

	filler := cfg.Section("CollectionFiller")
	filler.Key("tolerance").SetValue(fmt.Sprintf("%g", config.Tolerance))
	filler.Key("stuckRadius").SetValue(fmt.Sprintf("%g", config.StuckRadius))
	filler.Key("tabRadius").SetValue(fmt.Sprintf("%g", config.TabRadius))
	filler.Key("maxScrollPasses").SetValue(fmt.Sprintf("%d", config.MaxScrollPasses))
	filler.Key("actionDelayMs").SetValue(fmt.Sprintf("%d", config.ActionDelayMs))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
