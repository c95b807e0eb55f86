// Package gui is the Fyne front end: one tab per tool kind, run history,
// the event log, settings and a compact overlay.
package gui

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/game-helper-go/internal/config"
	"jordanella.com/game-helper-go/internal/database"
	"jordanella.com/game-helper-go/internal/emergency"
	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/gui/components"
	"jordanella.com/game-helper-go/internal/logging"
	"jordanella.com/game-helper-go/internal/monitor"
	"jordanella.com/game-helper-go/internal/tools"
	"jordanella.com/game-helper-go/internal/window"
	"jordanella.com/game-helper-go/pkg/templates"
)

// Options carries the services the controller drives
type Options struct {
	Config     *config.AppConfig
	ConfigPath string

	Manager   *tools.Manager
	Watcher   *monitor.WindowWatcher
	Emergency *emergency.Watcher
	Bus       *events.DefaultEventBus
	DB        *database.DB // nil disables run history
	Templates *templates.TemplateRegistry
}

// Controller owns the main window and the UI tick
type Controller struct {
	cfg        *liveConfig
	configPath string
	app        fyne.App
	window     fyne.Window

	manager   *tools.Manager
	watcher   *monitor.WindowWatcher
	emergency *emergency.Watcher
	bus       *events.DefaultEventBus
	db        *database.DB
	templates *templates.TemplateRegistry
	logger    *logging.Logger

	dispatcher *Dispatcher
	subs       []events.SubscriptionID

	toolTabs    []*ToolTab
	historyTab  *HistoryTab
	logTab      *LogTab
	settingsTab *SettingsTab
	overlay     *Overlay

	contentArea *fyne.Container
	windowLabel *widget.Label

	pollInterval    atomic.Int64
	overlayInterval atomic.Int64
	overlayActive   atomic.Bool
	stopOnLoss      atomic.Bool

	saveMu   sync.Mutex
	started  bool
	stopTick chan struct{}
	tickDone chan struct{}
}

// NewController wires the tabs and bus subscriptions. Call Start once the
// window content is set.
func NewController(app fyne.App, win fyne.Window, opts Options) *Controller {
	c := &Controller{
		cfg:        newLiveConfig(opts.Config),
		configPath: opts.ConfigPath,
		app:        app,
		window:     win,
		manager:    opts.Manager,
		watcher:    opts.Watcher,
		emergency:  opts.Emergency,
		bus:        opts.Bus,
		db:         opts.DB,
		templates:  opts.Templates,
		logger:     logging.NewLogger("GUI"),
		dispatcher: NewDispatcher(),
		stopTick:   make(chan struct{}),
		tickDone:   make(chan struct{}),
	}
	c.setIntervals(opts.Config)

	for _, kind := range tools.Kinds {
		c.toolTabs = append(c.toolTabs, NewToolTab(c, kind))
	}
	c.historyTab = NewHistoryTab(c)
	c.logTab = NewLogTab()
	c.settingsTab = NewSettingsTab(c)
	c.overlay = NewOverlay(c)

	c.setupUIHandlers()
	c.subscribeBus()
	return c
}

func (c *Controller) setIntervals(cfg *config.AppConfig) {
	c.pollInterval.Store(int64(cfg.PollInterval()))
	c.overlayInterval.Store(int64(cfg.OverlayPollInterval()))
	c.stopOnLoss.Store(cfg.StopOnWindowLoss)
}

// BuildUI constructs the main layout: navigation on top, content below and
// a status bar at the bottom
func (c *Controller) BuildUI() fyne.CanvasObject {
	var pages []fyne.CanvasObject
	nav := container.NewHBox()
	addPage := func(title string, page fyne.CanvasObject) {
		index := len(pages)
		pages = append(pages, page)
		nav.Add(widget.NewButton(title, func() { c.showTab(index) }))
	}

	for _, tab := range c.toolTabs {
		addPage(tab.kind.Label(), tab.Build())
	}
	addPage("History", c.historyTab.Build())
	addPage("Event Log", c.logTab.Build())
	addPage("Settings", c.settingsTab.Build())

	c.contentArea = container.NewStack(pages...)
	c.showTab(0)

	top := container.NewBorder(nil, nil, nil,
		components.ButtonGroup(
			components.SecondaryButton("Overlay", c.overlay.Show),
			components.DangerButton("Stop All", func() {
				c.manager.StopAll()
				c.refreshTools()
			}),
		),
		nav,
	)

	c.windowLabel = widget.NewLabel("")
	key := components.Caption(fmt.Sprintf("Emergency stop: %s", c.cfg.Snapshot().EmergencyKey))
	bottom := container.NewBorder(nil, nil, c.windowLabel, key)

	return container.NewBorder(top, bottom, nil, nil, c.contentArea)
}

func (c *Controller) showTab(index int) {
	for i, page := range c.contentArea.Objects {
		if i == index {
			page.Show()
		} else {
			page.Hide()
		}
	}
	c.contentArea.Refresh()
}

// Start begins window monitoring, the emergency hotkey and the UI tick
func (c *Controller) Start() {
	c.started = true
	c.dispatcher.Start(20 * time.Millisecond)
	if c.watcher != nil {
		c.watcher.Start()
	}
	if c.emergency != nil {
		c.emergency.Start()
	}
	go c.tick()
}

// tick drives pending calibrations and repaints run state. It never waits
// on a tool's background task.
func (c *Controller) tick() {
	defer close(c.tickDone)

	timer := time.NewTimer(c.currentInterval())
	defer timer.Stop()

	for {
		select {
		case <-c.stopTick:
			return
		case <-timer.C:
		}

		var h window.Handle
		if c.watcher != nil {
			h, _ = c.watcher.Current()
		}
		c.manager.Update(h)
		fyne.Do(c.refreshTools)

		timer.Reset(c.currentInterval())
	}
}

func (c *Controller) currentInterval() time.Duration {
	if c.overlayActive.Load() {
		return time.Duration(c.overlayInterval.Load())
	}
	return time.Duration(c.pollInterval.Load())
}

func (c *Controller) setOverlayActive(active bool) {
	c.overlayActive.Store(active)
}

// refreshTools repaints tool state; call it on the main thread
func (c *Controller) refreshTools() {
	for _, tab := range c.toolTabs {
		tab.Refresh()
	}
	if c.overlayActive.Load() {
		c.overlay.Refresh()
	}
	if c.windowLabel != nil && c.watcher != nil {
		text := "Game window: not found"
		if h, ok := c.watcher.Current(); ok {
			text = fmt.Sprintf("Game window: 0x%X", uintptr(h))
		}
		if c.windowLabel.Text != text {
			c.windowLabel.SetText(text)
		}
	}
}

func (c *Controller) startTool(id string) {
	if err := c.manager.Start(id); err != nil {
		dialog.ShowError(err, c.window)
	}
	c.refreshTools()
}

func (c *Controller) stopTool(id string) {
	if t, err := c.manager.Get(id); err == nil {
		t.Stop()
	}
	c.refreshTools()
}

// subscribeBus turns domain events into queued widget updates
func (c *Controller) subscribeBus() {
	if c.bus == nil {
		return
	}
	c.subs = c.bus.SubscribeAll(func(e events.Event) {
		level, message := describeEvent(e)
		c.dispatcher.Post(logEvent(level, e.Source, message))

		switch e.Type {
		case events.EventTypeToolStarted, events.EventTypeToolCompleted, events.EventTypeToolMatched,
			events.EventTypeToolStopped, events.EventTypeToolFailed:
			c.dispatcher.Post(UIEvent{Type: UIEventHistoryChanged})
		case events.EventTypeProfileAdded, events.EventTypeProfileDeleted:
			c.dispatcher.Post(UIEvent{Type: UIEventProfilesChanged})
		case events.EventTypeCalibrationCompleted:
			c.saveProfiles()
		case events.EventTypeWindowLost:
			if c.stopOnLoss.Load() {
				if n := c.manager.StopAll(); n > 0 {
					c.dispatcher.Post(logEvent(LogLevelWarn, "gui", fmt.Sprintf("Stopped %d tool(s) after the game window closed", n)))
				}
			}
		case events.EventTypeEmergencyStop:
			c.dispatcher.Post(infoDialogEvent("Emergency Stop", message))
		}
	})
}

func (c *Controller) setupUIHandlers() {
	c.dispatcher.Subscribe(UIEventLog, func(e UIEvent) {
		level, _ := e.Data["level"].(LogLevel)
		source, _ := e.Data["source"].(string)
		message, _ := e.Data["message"].(string)
		c.logTab.AddLog(level, source, message)
	})
	c.dispatcher.Subscribe(UIEventHistoryChanged, func(UIEvent) {
		c.historyTab.Reload()
	})
	c.dispatcher.Subscribe(UIEventProfilesChanged, func(UIEvent) {
		for _, tab := range c.toolTabs {
			tab.ReloadProfiles()
		}
		if c.overlayActive.Load() {
			c.overlay.Rebuild()
		}
	})
	c.dispatcher.Subscribe(UIEventDialogError, func(e UIEvent) {
		message, _ := e.Data["message"].(string)
		dialog.ShowError(fmt.Errorf("%s", message), c.window)
	})
	c.dispatcher.Subscribe(UIEventDialogInfo, func(e UIEvent) {
		title, _ := e.Data["title"].(string)
		message, _ := e.Data["message"].(string)
		dialog.ShowInformation(title, message, c.window)
	})
}

// saveProfiles persists every profile; safe from any goroutine
func (c *Controller) saveProfiles() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if err := config.SaveProfiles(c.cfg.ProfilesPath(), c.manager.Profiles()); err != nil {
		c.logger.Error("Failed to save profiles", err)
		c.dispatcher.Post(errorDialogEvent(fmt.Sprintf("Failed to save profiles: %v", err)))
	}
}

// applyConfig takes over the settings that can change at runtime
func (c *Controller) applyConfig(next *config.AppConfig) {
	c.cfg.Replace(next)
	c.setIntervals(next)
	if level, err := logging.ParseLogLevel(next.LogLevel); err == nil {
		logging.SetDefaults(level)
	}
}

// Shutdown stops every tool and background loop and saves profiles
func (c *Controller) Shutdown() {
	if c.started {
		close(c.stopTick)
		<-c.tickDone
	}

	if c.emergency != nil {
		c.emergency.Stop()
	}
	if c.watcher != nil {
		c.watcher.Stop()
	}
	if n := c.manager.StopAll(); n > 0 {
		for _, t := range c.manager.Tools() {
			t.Wait(2 * time.Second)
		}
	}
	for _, t := range c.manager.Tools() {
		t.CancelCalibration()
	}
	c.saveProfiles()

	if c.bus != nil {
		for _, id := range c.subs {
			c.bus.Unsubscribe(id)
		}
	}
	c.dispatcher.Stop()
}
