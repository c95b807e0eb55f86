// Package session builds the long-lived services shared by the GUI and the
// headless runner from one loaded configuration.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"jordanella.com/game-helper-go/internal/config"
	"jordanella.com/game-helper-go/internal/database"
	"jordanella.com/game-helper-go/internal/emergency"
	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/logging"
	"jordanella.com/game-helper-go/internal/monitor"
	"jordanella.com/game-helper-go/internal/ocr"
	"jordanella.com/game-helper-go/internal/tools"
	"jordanella.com/game-helper-go/internal/window"
	"jordanella.com/game-helper-go/pkg/templates"
)

const eventBufferSize = 256

// Session holds the services of one process
type Session struct {
	Config    *config.AppConfig
	Bus       *events.DefaultEventBus
	DB        *database.DB
	Templates *templates.TemplateRegistry
	Desktop   window.Desktop
	Watcher   *monitor.WindowWatcher
	Manager   *tools.Manager
	Emergency *emergency.Watcher

	eventLogger *logging.EventLogger
	logFile     *os.File
	logger      *logging.Logger
}

// Options tweaks what Open builds
type Options struct {
	// Desktop replaces the platform desktop, for tests
	Desktop window.Desktop
	// Console also receives log output
	Console io.Writer
	// NoHistory skips the run database
	NoHistory bool
}

// Open sets up logging, the event bus, run history, templates, the window
// watcher, every tool profile and the emergency hotkey. Nothing is started.
func Open(cfg *config.AppConfig, opts Options) (*Session, error) {
	s := &Session{Config: cfg}

	logFile, err := logging.OpenLogFile(cfg.LogDir, "helper")
	if err != nil {
		return nil, err
	}
	s.logFile = logFile
	outputs := []io.Writer{logFile}
	if opts.Console != nil {
		outputs = append(outputs, opts.Console)
	}
	logging.SetDefaults(cfg.LogLevelValue(), outputs...)
	s.logger = logging.NewLogger("Session")

	key, err := cfg.EmergencyStopKey()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("invalid emergency key: %w", err)
	}

	s.Bus = events.NewEventBus(eventBufferSize)
	if el, err := logging.NewEventLogger(s.Bus, cfg.LogDir); err != nil {
		s.logger.Error("Event log disabled", err)
	} else {
		s.eventLogger = el
	}

	if !opts.NoHistory {
		s.openHistory()
	}

	s.Templates = templates.NewTemplateRegistry(cfg.TemplatesPath)
	registryDir := filepath.Join(cfg.TemplatesPath, "registry")
	if err := s.Templates.LoadFromDirectory(registryDir); err != nil {
		s.logger.Warn(fmt.Sprintf("Templates not loaded from %s: %v", registryDir, err))
	}

	s.Desktop = opts.Desktop
	if s.Desktop == nil {
		s.Desktop = window.New(cfg.Target())
	}
	s.Watcher = monitor.NewWindowWatcher(s.Desktop).
		WithCheckInterval(cfg.WindowCheckInterval()).
		WithEventBus(s.Bus)

	env := tools.Env{
		Desktop:         s.Desktop,
		Window:          s.Watcher,
		OCR:             ocr.NewLoader(cfg.OCRConfig()),
		Matcher:         cfg.Matcher(),
		Templates:       s.Templates,
		Runner:          cfg.RunnerOptions(),
		Collection:      cfg.CollectionOptions(),
		ClickerInterval: cfg.ClickerInterval(),
		Bus:             s.Bus,
	}
	if s.DB != nil {
		env.Recorder = s.DB
	}
	s.Manager = tools.NewManager(env)

	profiles, err := config.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Manager.Load(profiles); err != nil {
		s.Close()
		return nil, err
	}
	if profiles == nil {
		// First launch: write the defaults so the file can be edited
		if err := config.SaveProfiles(cfg.ProfilesPath, s.Manager.Profiles()); err != nil {
			s.logger.Warn(fmt.Sprintf("Default profiles not saved: %v", err))
		}
	}

	s.Emergency = emergency.NewWatcher(s.Desktop, s.Manager, key).WithEventBus(s.Bus)

	s.logger.InfoWithContext("Session ready", map[string]interface{}{
		"profiles": len(s.Manager.Tools()),
		"history":  s.DB != nil,
		"target":   cfg.ProcessName,
	})
	return s, nil
}

// openHistory opens the run database. A failure only disables history.
func (s *Session) openHistory() {
	db, err := database.OpenAndMigrate(s.Config.DatabasePath)
	if err != nil {
		s.logger.Error("Run history disabled", err)
		return
	}
	if n, err := db.MarkInterruptedRuns(); err != nil {
		s.logger.Warn(fmt.Sprintf("Failed to close interrupted runs: %v", err))
	} else if n > 0 {
		s.logger.Info(fmt.Sprintf("Marked %d interrupted run(s) from the previous session", n))
	}
	s.DB = db
}

// SaveProfiles writes the current profiles back to disk
func (s *Session) SaveProfiles() error {
	return config.SaveProfiles(s.Config.ProfilesPath, s.Manager.Profiles())
}

// Close releases everything Open acquired. Tools must already be stopped.
func (s *Session) Close() error {
	var errs []error
	if s.eventLogger != nil {
		errs = append(errs, s.eventLogger.Close())
	}
	if s.Bus != nil {
		s.Bus.Stop()
		if n := s.Bus.DroppedCount(); n > 0 {
			s.logger.Warn(fmt.Sprintf("%d event(s) published during shutdown were dropped", n))
		}
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	if s.logFile != nil {
		logging.SetDefaults(s.Config.LogLevelValue(), os.Stdout)
		errs = append(errs, s.logFile.Close())
		s.logFile = nil
	}
	return errors.Join(errs...)
}
