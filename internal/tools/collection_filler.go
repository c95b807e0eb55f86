package tools

import (
	"fmt"
	"strconv"
	"strings"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/calibration"
	"jordanella.com/game-helper-go/internal/collection"
	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/cv"
	"jordanella.com/game-helper-go/internal/window"
	"jordanella.com/game-helper-go/internal/worker"
	"jordanella.com/game-helper-go/pkg/templates"
)

// CollectionFillerSettings stores the collection screen layout normalized
// against the client size, so it survives window resizes
type CollectionFillerSettings struct {
	Tabs     *coords.NormalizedRect `yaml:"tabs,omitempty"`
	Dungeons *coords.NormalizedRect `yaml:"dungeons,omitempty"`
	Items    *coords.NormalizedRect `yaml:"items,omitempty"`

	AutoRefill *coords.NormalizedPoint                      `yaml:"auto_refill,omitempty"`
	Register   *coords.NormalizedPoint                      `yaml:"register,omitempty"`
	Confirm    *coords.NormalizedPoint                      `yaml:"confirm,omitempty"`
	Pages      [collection.MaxPages]*coords.NormalizedPoint `yaml:"pages"`
	Advance    *coords.NormalizedPoint                      `yaml:"advance,omitempty"`

	// Tolerance overrides the configured scan tolerance when set
	Tolerance float64 `yaml:"tolerance,omitempty"`
	Marker    string  `yaml:"marker,omitempty"`
}

func (s CollectionFillerSettings) clone() CollectionFillerSettings {
	c := s
	c.Tabs = cloneRect(s.Tabs)
	c.Dungeons = cloneRect(s.Dungeons)
	c.Items = cloneRect(s.Items)
	c.AutoRefill = clonePoint(s.AutoRefill)
	c.Register = clonePoint(s.Register)
	c.Confirm = clonePoint(s.Confirm)
	c.Advance = clonePoint(s.Advance)
	for i := range s.Pages {
		c.Pages[i] = clonePoint(s.Pages[i])
	}
	return c
}

func cloneRect(r *coords.NormalizedRect) *coords.NormalizedRect {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func clonePoint(p *coords.NormalizedPoint) *coords.NormalizedPoint {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Layout denormalizes the settings against g. Unset entries stay zero and
// are reported by Layout.Validate.
func (s CollectionFillerSettings) Layout(g coords.Geometry) collection.Layout {
	var l collection.Layout
	rect := func(n *coords.NormalizedRect) coords.Rect {
		if n == nil {
			return coords.Rect{}
		}
		r, _ := coords.Denormalize(g, *n)
		return r
	}
	point := func(n *coords.NormalizedPoint) coords.Point {
		if n == nil {
			return coords.Point{}
		}
		p, _ := coords.DenormalizePoint(g, *n)
		return p
	}
	l.Tabs = rect(s.Tabs)
	l.Dungeons = rect(s.Dungeons)
	l.Items = rect(s.Items)
	l.AutoRefill = point(s.AutoRefill)
	l.Register = point(s.Register)
	l.Confirm = point(s.Confirm)
	l.Advance = point(s.Advance)
	for i, p := range s.Pages {
		l.Pages[i] = point(p)
	}
	return l
}

// CollectionFiller registers every marked collection item
type CollectionFiller struct {
	*base
	settings CollectionFillerSettings
}

func newCollectionFiller(env *Env, id, name string, s CollectionFillerSettings) *CollectionFiller {
	t := &CollectionFiller{base: newBase(env, id, name, KindCollectionFiller), settings: s}
	t.fields = t.calibrationFields
	t.apply = t.applyCalibration
	return t
}

func (t *CollectionFiller) Settings() CollectionFillerSettings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings.clone()
}

func (t *CollectionFiller) SetSettings(s CollectionFillerSettings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = s.clone()
}

func (t *CollectionFiller) Profile() Profile {
	s := t.Settings()
	return Profile{ID: t.id, Name: t.Name(), Kind: t.kind, CollectionFiller: &s}
}

// rectField and pointField address the settings by calibration key
func (s *CollectionFillerSettings) rectField(key string) **coords.NormalizedRect {
	switch key {
	case "tabs":
		return &s.Tabs
	case "dungeons":
		return &s.Dungeons
	case "items":
		return &s.Items
	}
	return nil
}

func (s *CollectionFillerSettings) pointField(key string) **coords.NormalizedPoint {
	switch key {
	case "auto_refill":
		return &s.AutoRefill
	case "register":
		return &s.Register
	case "confirm":
		return &s.Confirm
	case "advance":
		return &s.Advance
	}
	if n, ok := strings.CutPrefix(key, "page_"); ok {
		i, err := strconv.Atoi(n)
		if err == nil && i >= 1 && i <= collection.MaxPages {
			return &s.Pages[i-1]
		}
	}
	return nil
}

func (t *CollectionFiller) calibrationFields() []Field {
	s := t.Settings()
	fields := []Field{
		{Key: "tabs", Label: "Tabs region", Mode: calibration.ModeArea, Set: s.Tabs != nil},
		{Key: "dungeons", Label: "Dungeons region", Mode: calibration.ModeArea, Set: s.Dungeons != nil},
		{Key: "items", Label: "Items region", Mode: calibration.ModeArea, Set: s.Items != nil},
		{Key: "auto_refill", Label: "Auto-refill button", Mode: calibration.ModePoint, Set: s.AutoRefill != nil},
		{Key: "register", Label: "Register button", Mode: calibration.ModePoint, Set: s.Register != nil},
		{Key: "confirm", Label: "Confirm button", Mode: calibration.ModePoint, Set: s.Confirm != nil},
	}
	for i, p := range s.Pages {
		fields = append(fields, Field{
			Key:   fmt.Sprintf("page_%d", i+1),
			Label: fmt.Sprintf("Page %d button", i+1),
			Mode:  calibration.ModePoint,
			Set:   p != nil,
		})
	}
	return append(fields, Field{Key: "advance", Label: "Next pages button", Mode: calibration.ModePoint, Set: s.Advance != nil})
}

func (t *CollectionFiller) applyCalibration(key string, res calibration.Result, g coords.Geometry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f := t.settings.rectField(key); f != nil {
		if res.Area.IsDegenerate() {
			return fmt.Errorf("%s region %s has no size", key, res.Area)
		}
		n, ok := coords.Normalize(g, res.Area)
		if !ok {
			return fmt.Errorf("window geometry unavailable")
		}
		*f = &n
		return nil
	}
	if f := t.settings.pointField(key); f != nil {
		n, ok := coords.NormalizePoint(g, res.Point)
		if !ok {
			return fmt.Errorf("window geometry unavailable")
		}
		*f = &n
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, key)
}

// Validate reports the first region or button that was never calibrated
func (s CollectionFillerSettings) Validate() error {
	regions := []*coords.NormalizedRect{s.Tabs, s.Dungeons, s.Items}
	for i, name := range []string{"tabs", "dungeons", "items"} {
		if regions[i] == nil {
			return fmt.Errorf("%w: %s region not set", collection.ErrLayoutIncomplete, name)
		}
	}

	type button struct {
		name string
		p    *coords.NormalizedPoint
	}
	buttons := []button{{"auto-refill", s.AutoRefill}, {"register", s.Register}, {"confirm", s.Confirm}}
	for i, p := range s.Pages {
		buttons = append(buttons, button{fmt.Sprintf("page %d", i+1), p})
	}
	buttons = append(buttons, button{"advance", s.Advance})
	for _, b := range buttons {
		if b.p == nil {
			return fmt.Errorf("%w: %s button not set", collection.ErrLayoutIncomplete, b.name)
		}
	}
	return nil
}

func (t *CollectionFiller) Start() error {
	s := t.Settings()
	if err := s.Validate(); err != nil {
		return err
	}
	t.launch(func(ctl *worker.Control, h window.Handle) runSummary {
		return t.run(ctl, h, s)
	})
	return nil
}

func (t *CollectionFiller) run(ctl *worker.Control, h window.Handle, s CollectionFillerSettings) runSummary {
	g, ok := t.env.Desktop.Geometry(h)
	if !ok {
		return failRun(ctl, t.logger, fmt.Errorf("target window unavailable"))
	}
	layout := s.Layout(g)
	if err := layout.Validate(); err != nil {
		return failRun(ctl, t.logger, err)
	}
	if t.env.Templates == nil {
		return failRun(ctl, t.logger, fmt.Errorf("no template registry"))
	}

	opts := t.env.Collection
	if s.Tolerance > 0 {
		opts.Tolerance = s.Tolerance
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = collection.DefaultTolerance
	}

	markerName := s.Marker
	if markerName == "" {
		markerName = templates.MarkerRedDot
	}
	if !t.env.Templates.Has(markerName) {
		// A bare <name>.png in the templates directory needs no registry entry
		if err := t.env.Templates.Register(t.env.Templates.GetOrDefault(markerName, cv.DefaultThreshold)); err != nil {
			return failRun(ctl, t.logger, err)
		}
	}
	marker, _, err := t.env.Templates.Image(markerName)
	if err != nil {
		return failRun(ctl, t.logger, err)
	}
	finder, err := cv.NewMarkerFinder(t.env.Desktop, t.env.Matcher, h, marker, opts.Tolerance)
	if err != nil {
		return failRun(ctl, t.logger, err)
	}
	filler := collection.NewFiller(finder, &windowPointer{desktop: t.env.Desktop, handle: h}, layout, opts)

	res := filler.Run(ctl)
	t.logger.InfoWithContext("Collection run ended", map[string]interface{}{
		"outcome":     string(res.Outcome),
		"tabs":        res.Tabs,
		"items":       res.Items,
		"stuck_items": res.StuckItems,
		"scan_errors": res.ScanErrors,
	})

	sum := runSummary{iterations: res.Items}
	switch res.Outcome {
	case collection.OutcomeCompleted:
		ctl.Finish(collection.StatusComplete)
		sum.outcome = string(actions.OutcomeCompleted)
	case collection.OutcomeStuckTab:
		ctl.Finish(t.worker.Status())
		sum.outcome = string(actions.OutcomeFailed)
	default:
		sum.outcome = string(actions.OutcomeStopped)
	}
	return sum
}

// windowPointer clicks with direct messages and scrolls at the matching
// screen position
type windowPointer struct {
	desktop window.Desktop
	handle  window.Handle
}

func (p *windowPointer) Click(pt coords.Point) error {
	return p.desktop.SendClick(p.handle, pt, window.ButtonLeft)
}

func (p *windowPointer) Scroll(pt coords.Point, direction window.ScrollDirection, amount int) error {
	g, ok := p.desktop.Geometry(p.handle)
	if !ok {
		return fmt.Errorf("window geometry unavailable")
	}
	return p.desktop.Scroll(coords.ToScreen(g, pt), direction, amount)
}
