package gui

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/game-helper-go/internal/database"
	"jordanella.com/game-helper-go/internal/gui/components"
)

const historyLimit = 200

// HistoryTab lists recent runs from the database
type HistoryTab struct {
	controller *Controller

	runs   []*database.ToolRun
	runsMu sync.RWMutex

	runList    *widget.List
	statsLabel *widget.Label
	selected   *database.ToolRun
}

// NewHistoryTab creates the run history view
func NewHistoryTab(ctrl *Controller) *HistoryTab {
	return &HistoryTab{controller: ctrl}
}

// Build constructs the history view
func (h *HistoryTab) Build() fyne.CanvasObject {
	h.statsLabel = widget.NewLabel("Select a run to see its tool's totals")
	h.statsLabel.Wrapping = fyne.TextWrapWord

	h.runList = widget.NewList(
		func() int {
			h.runsMu.RLock()
			defer h.runsMu.RUnlock()
			return len(h.runs)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("run")
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			h.runsMu.RLock()
			defer h.runsMu.RUnlock()
			if id < len(h.runs) {
				item.(*widget.Label).SetText(formatRun(*h.runs[id]))
			}
		},
	)
	h.runList.OnSelected = func(id widget.ListItemID) {
		h.runsMu.RLock()
		if id < len(h.runs) {
			h.selected = h.runs[id]
		}
		h.runsMu.RUnlock()
		h.showStats()
	}

	clearBtn := components.DangerButton("Clear Tool History", h.confirmClear)
	header := components.SectionHeader("Run History",
		components.SecondaryButton("Refresh", h.Reload),
		clearBtn,
	)

	if h.controller.db == nil {
		return container.NewVBox(header, widget.NewLabel("Run history is disabled: no database configured"))
	}

	h.Reload()
	return container.NewBorder(header, components.Card(h.statsLabel), nil, nil, h.runList)
}

// Reload queries the latest runs; call it on the main thread
func (h *HistoryTab) Reload() {
	db := h.controller.db
	if db == nil || h.runList == nil {
		return
	}
	runs, err := db.RecentRuns(historyLimit)
	if err != nil {
		h.controller.logger.Error("Failed to load run history", err)
		return
	}
	h.runsMu.Lock()
	h.runs = runs
	h.runsMu.Unlock()
	h.runList.Refresh()
}

func (h *HistoryTab) showStats() {
	if h.selected == nil || h.controller.db == nil {
		return
	}
	stats, err := h.controller.db.GetToolStats(h.selected.ToolID)
	if err != nil {
		h.statsLabel.SetText(fmt.Sprintf("Error: %v", err))
		return
	}
	h.statsLabel.SetText(fmt.Sprintf("%s: %s", h.selected.ToolName, formatStats(stats)))
}

func (h *HistoryTab) confirmClear() {
	run := h.selected
	if run == nil || h.controller.db == nil {
		return
	}
	msg := fmt.Sprintf("Delete every recorded run of %s?", run.ToolName)
	dialog.ShowConfirm("Clear History", msg, func(ok bool) {
		if !ok {
			return
		}
		if err := h.controller.db.DeleteToolRuns(run.ToolID); err != nil {
			dialog.ShowError(err, h.controller.window)
			return
		}
		h.selected = nil
		h.runList.UnselectAll()
		h.statsLabel.SetText("")
		h.Reload()
	}, h.controller.window)
}
