package gui

import (
	"sync"

	"jordanella.com/game-helper-go/internal/config"
)

// liveConfig guards the config the settings tab edits on the main thread
// while bus handlers read it from their own goroutines
type liveConfig struct {
	mu  sync.RWMutex
	cfg *config.AppConfig
}

func newLiveConfig(cfg *config.AppConfig) *liveConfig {
	return &liveConfig{cfg: cfg}
}

// Snapshot returns a copy safe to read without the lock
func (l *liveConfig) Snapshot() config.AppConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return *l.cfg
}

// Replace overwrites the shared config in place
func (l *liveConfig) Replace(next *config.AppConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.cfg = *next
}

func (l *liveConfig) ProfilesPath() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.ProfilesPath
}
