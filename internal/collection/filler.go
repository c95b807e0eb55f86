// Package collection drives the collection filler: it walks every tab that
// carries a marker, pages through that tab's dungeon list and registers every
// marked item until no marker is left anywhere.
//
// The game client redraws asynchronously, so markers can reappear while a
// page is being processed. The filler therefore re-scans after every item,
// double-checks before scrolling and bounds every loop: stuck markers, tabs
// that never clear and empty pages all terminate instead of spinning.
package collection

import (
	"errors"
	"fmt"
	"time"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/logging"
	"jordanella.com/game-helper-go/internal/window"
)

const (
	MaxPages        = 4
	MaxTabRepeats   = 3
	MaxStuckHits    = 3
	MaxEmptySweeps  = 2
	TabRadius       = 15
	StuckRadius     = 6
	MaxScrollPasses = 8

	DefaultTolerance   = 0.8
	DefaultActionDelay = 300 * time.Millisecond
	ScrollAmount       = 3

	StatusComplete = "Collection complete"
)

var ErrLayoutIncomplete = errors.New("collection layout incomplete")

// MarkerSource finds marker centers inside a window-relative region
type MarkerSource interface {
	FindMarkers(region coords.Rect) ([]coords.Point, error)
}

// Pointer clicks and scrolls at window-relative points
type Pointer interface {
	Click(p coords.Point) error
	Scroll(p coords.Point, direction window.ScrollDirection, amount int) error
}

// Control is the part of worker.Control the filler uses
type Control interface {
	Running() bool
	SetStatus(status string)
	Sleep(d time.Duration) bool
}

// Layout holds the window-relative regions and buttons of the collection screen
type Layout struct {
	Tabs     coords.Rect
	Dungeons coords.Rect
	Items    coords.Rect

	AutoRefill coords.Point
	Register   coords.Point
	Confirm    coords.Point

	Pages   [MaxPages]coords.Point
	Advance coords.Point
}

// Validate checks that every region has an area and every button is set
func (l Layout) Validate() error {
	regions := map[string]coords.Rect{"tabs": l.Tabs, "dungeons": l.Dungeons, "items": l.Items}
	for _, name := range []string{"tabs", "dungeons", "items"} {
		if regions[name].IsDegenerate() {
			return fmt.Errorf("%w: %s region not set", ErrLayoutIncomplete, name)
		}
	}

	type button struct {
		name string
		p    coords.Point
	}
	buttons := []button{
		{"auto-refill", l.AutoRefill},
		{"register", l.Register},
		{"confirm", l.Confirm},
		{"advance", l.Advance},
	}
	for i, p := range l.Pages {
		buttons = append(buttons, button{fmt.Sprintf("page %d", i+1), p})
	}
	for _, b := range buttons {
		if b.p == (coords.Point{}) {
			return fmt.Errorf("%w: %s button not set", ErrLayoutIncomplete, b.name)
		}
	}
	return nil
}

// Options tunes the scan. Zero fields take the package defaults.
type Options struct {
	Tolerance       float64
	StuckRadius     float64
	TabRadius       float64
	MaxScrollPasses int
	ActionDelay     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.StuckRadius <= 0 {
		o.StuckRadius = StuckRadius
	}
	if o.TabRadius <= 0 {
		o.TabRadius = TabRadius
	}
	if o.MaxScrollPasses <= 0 {
		o.MaxScrollPasses = MaxScrollPasses
	}
	if o.ActionDelay <= 0 {
		o.ActionDelay = DefaultActionDelay
	}
	return o
}

// Outcome is how a fill ended
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeStuckTab  Outcome = "stuck_tab"
)

// Result summarizes a fill
type Result struct {
	Outcome     Outcome
	Tabs        int
	Items       int
	StuckItems  int
	ScanErrors  int
	LastStuckAt *coords.Point
}

// Filler runs the scan against one window
type Filler struct {
	markers MarkerSource
	pointer Pointer
	layout  Layout
	opts    Options
	logger  *logging.Logger
}

// NewFiller creates a filler. The layout must already be validated.
func NewFiller(markers MarkerSource, pointer Pointer, layout Layout, opts Options) *Filler {
	return &Filler{
		markers: markers,
		pointer: pointer,
		layout:  layout,
		opts:    opts.withDefaults(),
		logger:  logging.NewLogger("CollectionFiller"),
	}
}

// Tolerance returns the confidence threshold shared by all three regions
func (f *Filler) Tolerance() float64 {
	return f.opts.Tolerance
}

// fill carries per-run state
type fill struct {
	*Filler
	ctl    Control
	result Result
}

// Run processes tabs until none carries a marker or the run is stopped
func (f *Filler) Run(ctl Control) Result {
	fl := &fill{Filler: f, ctl: ctl}
	return fl.run()
}

func (fl *fill) run() Result {
	var lastTab coords.Point
	visits := 0

	for fl.ctl.Running() {
		fl.ctl.SetStatus("Scanning tabs")
		tabs, ok := fl.scan(fl.layout.Tabs)
		if !ok {
			continue
		}
		if len(tabs) == 0 {
			fl.ctl.SetStatus(StatusComplete)
			fl.result.Outcome = OutcomeCompleted
			return fl.result
		}

		tab := tabs[0]
		if visits > 0 && tab.Within(lastTab, fl.opts.TabRadius) {
			visits++
		} else {
			visits = 1
			lastTab = tab
		}
		if visits > MaxTabRepeats {
			fl.logger.WarnWithContext("Tab marker never clears", map[string]interface{}{"tab": tab.String(), "visits": visits - 1})
			fl.ctl.SetStatus(fmt.Sprintf("Error: tab at %s still marked after %d visits", tab, MaxTabRepeats))
			fl.result.Outcome = OutcomeStuckTab
			return fl.result
		}

		fl.result.Tabs++
		if !fl.click(tab) {
			break
		}
		fl.processTab(tab)
	}

	fl.result.Outcome = OutcomeStopped
	return fl.result
}

// scan finds markers in region. A failed capture is transient: it is
// reported, the filler waits one action delay and the caller retries.
func (fl *fill) scan(region coords.Rect) ([]coords.Point, bool) {
	points, err := fl.markers.FindMarkers(region)
	if err != nil {
		fl.result.ScanErrors++
		fl.logger.Error("Marker scan failed", err)
		fl.ctl.SetStatus(fmt.Sprintf("Error: %v", err))
		fl.ctl.Sleep(fl.opts.ActionDelay)
		return nil, false
	}
	return points, true
}

// click presses p and waits one action delay. It reports whether the run is
// still active.
func (fl *fill) click(p coords.Point) bool {
	if err := fl.pointer.Click(p); err != nil {
		fl.logger.Warn(fmt.Sprintf("Click at %s failed: %v", p, err))
	}
	return fl.ctl.Sleep(fl.opts.ActionDelay)
}

// processTab pages through the dungeon list of the selected tab
func (fl *fill) processTab(tab coords.Point) {
	page := 1
	emptySweeps := 0

	for fl.ctl.Running() {
		fl.ctl.SetStatus(fmt.Sprintf("Tab %d: dungeon page %d", fl.result.Tabs, page))

		dungeons, ok := fl.scan(fl.layout.Dungeons)
		if !ok {
			continue
		}

		if len(dungeons) > 0 {
			processed := 0
			for _, d := range dungeons {
				if !fl.click(d) {
					return
				}
				processed += fl.processItems()
				if !fl.ctl.Running() {
					return
				}
			}
			if processed > 0 {
				if page != 1 {
					page = 1
					if !fl.click(fl.layout.Pages[0]) {
						return
					}
				}
				emptySweeps = 0
				continue
			}
			// Dungeon markers that yielded no item count as an empty page
		}

		if !fl.tabStillMarked(tab) {
			return
		}

		if page < MaxPages {
			page++
			if !fl.click(fl.layout.Pages[page-1]) {
				return
			}
			continue
		}

		emptySweeps++
		if emptySweeps >= MaxEmptySweeps {
			return
		}
		page = 1
		if !fl.click(fl.layout.Advance) {
			return
		}
	}
}

// tabStillMarked checks whether a marker remains near the tab's original position
func (fl *fill) tabStillMarked(tab coords.Point) bool {
	tabs, ok := fl.scan(fl.layout.Tabs)
	if !ok {
		// Unknown, keep paging
		return true
	}
	for _, t := range tabs {
		if t.Within(tab, fl.opts.TabRadius) {
			return true
		}
	}
	return false
}

// processItems drains the visible items, double-checks, then scrolls the
// list, up to MaxScrollPasses times. It returns how many items were registered.
func (fl *fill) processItems() int {
	scrollAt := fl.layout.Items.Center()
	total := 0

	for pass := 0; pass < fl.opts.MaxScrollPasses && fl.ctl.Running(); pass++ {
		fl.ctl.SetStatus(fmt.Sprintf("Tab %d: items pass %d/%d", fl.result.Tabs, pass+1, fl.opts.MaxScrollPasses))

		n, stuck := fl.drain()
		total += n
		if !stuck && fl.ctl.Running() {
			// Leftovers the client redrew while the first drain ran
			n, _ = fl.drain()
			total += n
		}
		if !fl.ctl.Running() {
			return total
		}

		if err := fl.pointer.Scroll(scrollAt, window.ScrollDown, ScrollAmount); err != nil {
			fl.logger.Warn(fmt.Sprintf("Scroll failed: %v", err))
		}
		if !fl.ctl.Sleep(fl.opts.ActionDelay) {
			return total
		}
	}
	return total
}

// drain registers the first visible item until none is left. Three
// consecutive detections within StuckRadius abort the drain.
func (fl *fill) drain() (processed int, stuck bool) {
	var prev coords.Point
	hits := 0

	for fl.ctl.Running() {
		items, ok := fl.scan(fl.layout.Items)
		if !ok {
			return processed, false
		}
		if len(items) == 0 {
			return processed, false
		}

		item := items[0]
		if hits > 0 && item.Within(prev, fl.opts.StuckRadius) {
			hits++
		} else {
			hits = 1
		}
		prev = item

		if hits >= MaxStuckHits {
			fl.result.StuckItems++
			stuckAt := item
			fl.result.LastStuckAt = &stuckAt
			fl.logger.WarnWithContext("Item marker stuck, skipping", map[string]interface{}{"item": item.String()})
			fl.ctl.SetStatus(fmt.Sprintf("Stuck on item at %s, skipping", item))
			return processed, true
		}

		fl.ctl.SetStatus(fmt.Sprintf("Registering item at %s", item))
		if !fl.register(item) {
			return processed, false
		}
		processed++
		fl.result.Items++
	}
	return processed, false
}

// register runs the fixed sequence: select item, auto-refill, register, confirm
func (fl *fill) register(item coords.Point) bool {
	for _, p := range []coords.Point{item, fl.layout.AutoRefill, fl.layout.Register, fl.layout.Confirm} {
		if !fl.click(p) {
			return false
		}
	}
	return true
}
