package collection

import (
	"errors"
	"testing"
	"time"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/window"
)

// budgetControl stops the run after a fixed number of Running checks so a
// looping filler fails the test instead of hanging it
type budgetControl struct {
	budget   int
	statuses []string
}

func (c *budgetControl) Running() bool {
	if c.budget <= 0 {
		return false
	}
	c.budget--
	return true
}

func (c *budgetControl) SetStatus(s string) {
	c.statuses = append(c.statuses, s)
}

func (c *budgetControl) Sleep(time.Duration) bool {
	return c.Running()
}

func (c *budgetControl) last() string {
	if len(c.statuses) == 0 {
		return ""
	}
	return c.statuses[len(c.statuses)-1]
}

func testLayout() Layout {
	return Layout{
		Tabs:       coords.Rect{Left: 0, Top: 0, Width: 100, Height: 20},
		Dungeons:   coords.Rect{Left: 0, Top: 30, Width: 100, Height: 100},
		Items:      coords.Rect{Left: 120, Top: 30, Width: 200, Height: 300},
		AutoRefill: coords.Point{X: 400, Y: 10},
		Register:   coords.Point{X: 400, Y: 40},
		Confirm:    coords.Point{X: 400, Y: 70},
		Pages: [MaxPages]coords.Point{
			{X: 10, Y: 140}, {X: 30, Y: 140}, {X: 50, Y: 140}, {X: 70, Y: 140},
		},
		Advance: coords.Point{X: 90, Y: 140},
	}
}

// world is a scripted collection screen. Confirming a selected item clears
// it; an empty item list clears the dungeon and tab markers.
type world struct {
	layout   Layout
	tabs     []coords.Point
	dungeons []coords.Point
	items    []coords.Point

	// tabScript, when set, replaces tabs call by call
	tabScript [][]coords.Point
	scanErr   error

	selected *coords.Point
	clicks   []coords.Point
	scrolls  int
}

func (w *world) FindMarkers(region coords.Rect) ([]coords.Point, error) {
	if w.scanErr != nil {
		err := w.scanErr
		w.scanErr = nil
		return nil, err
	}
	switch region {
	case w.layout.Tabs:
		if len(w.tabScript) > 0 {
			next := w.tabScript[0]
			w.tabScript = w.tabScript[1:]
			return next, nil
		}
		return w.tabs, nil
	case w.layout.Dungeons:
		return w.dungeons, nil
	case w.layout.Items:
		return w.items, nil
	}
	return nil, nil
}

func (w *world) Click(p coords.Point) error {
	w.clicks = append(w.clicks, p)
	for _, it := range w.items {
		if it == p {
			sel := p
			w.selected = &sel
		}
	}
	if p == w.layout.Confirm && w.selected != nil {
		for i, it := range w.items {
			if it == *w.selected {
				w.items = append(w.items[:i], w.items[i+1:]...)
				break
			}
		}
		w.selected = nil
		if len(w.items) == 0 {
			w.dungeons = nil
			w.tabs = nil
		}
	}
	return nil
}

func (w *world) Scroll(p coords.Point, dir window.ScrollDirection, amount int) error {
	w.scrolls++
	return nil
}

func (w *world) count(p coords.Point) int {
	n := 0
	for _, c := range w.clicks {
		if c == p {
			n++
		}
	}
	return n
}

func TestRunCompletes(t *testing.T) {
	layout := testLayout()
	w := &world{
		layout:   layout,
		tabs:     []coords.Point{{X: 20, Y: 10}},
		dungeons: []coords.Point{{X: 50, Y: 60}},
		items:    []coords.Point{{X: 150, Y: 50}, {X: 150, Y: 120}, {X: 150, Y: 190}},
	}
	ctl := &budgetControl{budget: 10000}

	res := NewFiller(w, w, layout, Options{MaxScrollPasses: 2}).Run(ctl)

	if res.Outcome != OutcomeCompleted {
		t.Fatalf("Expected completed, got %+v", res)
	}
	if res.Items != 3 || res.Tabs != 1 || res.StuckItems != 0 {
		t.Errorf("Unexpected result %+v", res)
	}
	if ctl.last() != StatusComplete {
		t.Errorf("Expected final status %q, got %q", StatusComplete, ctl.last())
	}
	if w.count(layout.Confirm) != 3 || w.count(layout.AutoRefill) != 3 || w.count(layout.Register) != 3 {
		t.Error("Expected the fixed sequence once per item")
	}
	if w.scrolls != 2 {
		t.Errorf("Expected one scroll per pass, got %d", w.scrolls)
	}
}

func TestDrainStopsOnStuckMarker(t *testing.T) {
	layout := testLayout()
	// Confirm never clears this marker; the position jitters by a pixel
	w := &world{layout: layout}
	positions := [][]coords.Point{
		{{X: 150, Y: 50}}, {{X: 151, Y: 50}}, {{X: 150, Y: 52}}, {{X: 150, Y: 50}},
	}
	src := &sequenceSource{world: w, items: positions}
	ctl := &budgetControl{budget: 10000}

	fl := &fill{Filler: NewFiller(src, w, layout, Options{}), ctl: ctl}
	processed, stuck := fl.drain()

	if !stuck {
		t.Fatal("Expected drain to report a stuck marker")
	}
	if processed != MaxStuckHits-1 {
		t.Errorf("Expected %d registrations before giving up, got %d", MaxStuckHits-1, processed)
	}
	if fl.result.StuckItems != 1 || fl.result.LastStuckAt == nil {
		t.Errorf("Stuck item not recorded: %+v", fl.result)
	}
	if ctl.budget == 0 {
		t.Error("Drain exhausted the run budget")
	}
}

func TestStuckItemDoesNotLoopForever(t *testing.T) {
	layout := testLayout()
	w := &world{
		layout:    layout,
		tabScript: [][]coords.Point{{{X: 20, Y: 10}}},
		dungeons:  []coords.Point{{X: 50, Y: 60}},
	}
	stuckItem := coords.Point{X: 150, Y: 50}
	src := &sequenceSource{world: w, fixedItem: &stuckItem}
	ctl := &budgetControl{budget: 100000}

	res := NewFiller(src, w, layout, Options{MaxScrollPasses: 3}).Run(ctl)

	if ctl.budget == 0 {
		t.Fatal("Filler ran until the budget was exhausted")
	}
	// One stuck drain per pass, and the double-check is skipped after a stuck drain
	if res.StuckItems != 3 {
		t.Errorf("Expected 3 stuck drains, got %d", res.StuckItems)
	}
	if res.Items != 3*(MaxStuckHits-1) {
		t.Errorf("Expected %d registrations, got %d", 3*(MaxStuckHits-1), res.Items)
	}
}

// sequenceSource serves scripted item lists and delegates the rest to world
type sequenceSource struct {
	world     *world
	items     [][]coords.Point
	fixedItem *coords.Point
}

func (s *sequenceSource) FindMarkers(region coords.Rect) ([]coords.Point, error) {
	if region != s.world.layout.Items {
		if region == s.world.layout.Dungeons && s.fixedItem != nil {
			// The dungeon marker is reported once
			d := s.world.dungeons
			s.world.dungeons = nil
			return d, nil
		}
		return s.world.FindMarkers(region)
	}
	if s.fixedItem != nil {
		return []coords.Point{*s.fixedItem}, nil
	}
	if len(s.items) == 0 {
		return nil, nil
	}
	next := s.items[0]
	s.items = s.items[1:]
	return next, nil
}

func TestTabThatNeverClearsEndsRun(t *testing.T) {
	layout := testLayout()
	w := &world{layout: layout, tabs: []coords.Point{{X: 20, Y: 10}}}
	ctl := &budgetControl{budget: 10000}

	res := NewFiller(w, w, layout, Options{}).Run(ctl)

	if res.Outcome != OutcomeStuckTab {
		t.Fatalf("Expected stuck tab outcome, got %+v", res)
	}
	if res.Tabs != MaxTabRepeats {
		t.Errorf("Expected %d tab visits, got %d", MaxTabRepeats, res.Tabs)
	}
	// Each visit sweeps pages 2..4, advances, sweeps again and gives up
	if got := w.count(layout.Advance); got != MaxTabRepeats*(MaxEmptySweeps-1) {
		t.Errorf("Expected %d advance clicks, got %d", MaxTabRepeats*(MaxEmptySweeps-1), got)
	}
	if got := w.count(layout.Pages[3]); got != MaxTabRepeats*MaxEmptySweeps {
		t.Errorf("Expected %d page-4 clicks, got %d", MaxTabRepeats*MaxEmptySweeps, got)
	}
}

func TestDungeonThatNeverClearsEndsRun(t *testing.T) {
	layout := testLayout()
	w := &world{
		layout:   layout,
		tabs:     []coords.Point{{X: 20, Y: 10}},
		dungeons: []coords.Point{{X: 50, Y: 60}},
	}
	ctl := &budgetControl{budget: 200000}

	res := NewFiller(w, w, layout, Options{MaxScrollPasses: 2}).Run(ctl)

	if ctl.budget == 0 {
		t.Fatal("Filler ran until the budget was exhausted")
	}
	if res.Outcome != OutcomeStuckTab || res.Items != 0 {
		t.Fatalf("Expected stuck tab outcome without items, got %+v", res)
	}
	// An empty dungeon is treated like an empty page: every page of every sweep
	wantClicks := MaxTabRepeats * MaxEmptySweeps * MaxPages
	if got := w.count(coords.Point{X: 50, Y: 60}); got != wantClicks {
		t.Errorf("Expected %d dungeon clicks, got %d", wantClicks, got)
	}
	if w.scrolls != wantClicks*2 {
		t.Errorf("Expected %d scrolls, got %d", wantClicks*2, w.scrolls)
	}
}

func TestTabDisappearsWhilePaging(t *testing.T) {
	layout := testLayout()
	tab := coords.Point{X: 20, Y: 10}
	moved := coords.Point{X: 80, Y: 10}
	w := &world{
		layout: layout,
		tabScript: [][]coords.Point{
			{tab},   // outer scan
			{tab},   // still marked after page 1
			{moved}, // a different tab, outside the radius
			{},      // outer scan: nothing left
		},
	}
	ctl := &budgetControl{budget: 10000}

	res := NewFiller(w, w, layout, Options{}).Run(ctl)

	if res.Outcome != OutcomeCompleted {
		t.Fatalf("Expected completed, got %+v", res)
	}
	if w.count(layout.Pages[1]) != 1 || w.count(layout.Pages[2]) != 0 {
		t.Errorf("Expected paging to stop after page 2, clicks %v", w.clicks)
	}
}

func TestScanErrorIsTransient(t *testing.T) {
	layout := testLayout()
	w := &world{layout: layout, scanErr: errors.New("capture failed")}
	ctl := &budgetControl{budget: 1000}

	res := NewFiller(w, w, layout, Options{}).Run(ctl)

	if res.Outcome != OutcomeCompleted || res.ScanErrors != 1 {
		t.Errorf("Expected completion after one scan error, got %+v", res)
	}
}

func TestRunStopped(t *testing.T) {
	layout := testLayout()
	w := &world{layout: layout, tabs: []coords.Point{{X: 20, Y: 10}}}
	ctl := &budgetControl{budget: 0}

	res := NewFiller(w, w, layout, Options{}).Run(ctl)

	if res.Outcome != OutcomeStopped || len(w.clicks) != 0 {
		t.Errorf("Expected stop before any click, got %+v clicks=%v", res, w.clicks)
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *Layout)
		wantErr bool
	}{
		{"complete", func(l *Layout) {}, false},
		{"no tabs region", func(l *Layout) { l.Tabs = coords.Rect{} }, true},
		{"zero height items", func(l *Layout) { l.Items.Height = 0 }, true},
		{"no confirm", func(l *Layout) { l.Confirm = coords.Point{} }, true},
		{"no page 3", func(l *Layout) { l.Pages[2] = coords.Point{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLayout()
			tt.mutate(&l)
			err := l.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrLayoutIncomplete) {
				t.Errorf("Expected ErrLayoutIncomplete, got %v", err)
			}
		})
	}
}
