package gui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/game-helper-go/internal/gui/components"
)

// LogLevel is the severity shown in the event log
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// LogEntry is one line of the event log
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Source    string
	Message   string
}

// LogTab shows bus events as they happen
type LogTab struct {
	logs    []LogEntry
	logsMu  sync.RWMutex
	maxLogs int

	logList         *widget.List
	filterSelect    *widget.Select
	autoScrollCheck *widget.Check
}

// NewLogTab creates an empty log tab
func NewLogTab() *LogTab {
	return &LogTab{maxLogs: 1000}
}

// Build constructs the log viewer
func (l *LogTab) Build() fyne.CanvasObject {
	l.filterSelect = widget.NewSelect([]string{"All", "INFO", "WARN", "ERROR"}, func(string) {
		if l.logList != nil {
			l.logList.Refresh()
		}
	})
	l.filterSelect.SetSelected("All")

	l.autoScrollCheck = widget.NewCheck("Auto-scroll", nil)
	l.autoScrollCheck.SetChecked(true)

	controls := container.NewHBox(
		widget.NewLabel("Filter:"),
		l.filterSelect,
		l.autoScrollCheck,
		components.SecondaryButton("Clear", l.ClearLogs),
	)

	l.logList = widget.NewList(
		l.filteredCount,
		func() fyne.CanvasObject {
			return container.NewHBox(
				widget.NewLabel("00:00:00"),
				widget.NewLabel("[LEVEL]"),
				widget.NewLabel("message"),
			)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			entry, ok := l.filteredAt(id)
			if !ok {
				return
			}
			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(entry.Timestamp.Format("15:04:05"))

			level := box.Objects[1].(*widget.Label)
			level.SetText(fmt.Sprintf("[%s]", entry.Level))
			switch entry.Level {
			case LogLevelWarn:
				level.Importance = widget.WarningImportance
			case LogLevelError:
				level.Importance = widget.DangerImportance
			default:
				level.Importance = widget.MediumImportance
			}
			level.Refresh()

			box.Objects[2].(*widget.Label).SetText(entry.Message)
		},
	)

	return container.NewBorder(
		container.NewVBox(components.SectionHeader("Event Log"), controls),
		nil, nil, nil,
		l.logList,
	)
}

// AddLog appends an entry; call it on the main thread
func (l *LogTab) AddLog(level LogLevel, source, message string) {
	l.logsMu.Lock()
	l.logs = append(l.logs, LogEntry{Timestamp: time.Now(), Level: level, Source: source, Message: message})
	if len(l.logs) > l.maxLogs {
		l.logs = l.logs[len(l.logs)-l.maxLogs:]
	}
	l.logsMu.Unlock()

	if l.logList != nil {
		l.logList.Refresh()
		if l.autoScrollCheck != nil && l.autoScrollCheck.Checked {
			l.logList.ScrollToBottom()
		}
	}
}

// ClearLogs removes every entry
func (l *LogTab) ClearLogs() {
	l.logsMu.Lock()
	l.logs = nil
	l.logsMu.Unlock()
	if l.logList != nil {
		l.logList.Refresh()
	}
}

func (l *LogTab) filter() string {
	if l.filterSelect == nil || l.filterSelect.Selected == "" {
		return "All"
	}
	return l.filterSelect.Selected
}

func (l *LogTab) filteredCount() int {
	l.logsMu.RLock()
	defer l.logsMu.RUnlock()

	selected := l.filter()
	if selected == "All" {
		return len(l.logs)
	}
	n := 0
	for _, e := range l.logs {
		if e.Level.String() == selected {
			n++
		}
	}
	return n
}

func (l *LogTab) filteredAt(index int) (LogEntry, bool) {
	l.logsMu.RLock()
	defer l.logsMu.RUnlock()

	selected := l.filter()
	if selected == "All" {
		if index >= 0 && index < len(l.logs) {
			return l.logs[index], true
		}
		return LogEntry{}, false
	}
	i := 0
	for _, e := range l.logs {
		if e.Level.String() != selected {
			continue
		}
		if i == index {
			return e, true
		}
		i++
	}
	return LogEntry{}, false
}
