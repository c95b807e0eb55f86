package tools

import (
	"fmt"
	"time"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/calibration"
	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/window"
	"jordanella.com/game-helper-go/internal/worker"
)

const (
	DefaultClickerInterval = time.Second

	fieldSearchArea = "search_area"
)

// ImageClickerSettings clicks every hit of a template inside a search area
type ImageClickerSettings struct {
	Template   string                 `yaml:"template"`
	SearchArea *coords.NormalizedRect `yaml:"search_area,omitempty"` // nil searches the whole client
	Threshold  float64                `yaml:"threshold,omitempty"`   // 0 uses the template's own
	IntervalMs uint64                 `yaml:"interval_ms,omitempty"`
	MaxPasses  int                    `yaml:"max_passes,omitempty"` // 0 runs until stopped
	Button     window.Button          `yaml:"button,omitempty"`
	Method     actions.ClickMethod    `yaml:"method,omitempty"`
}

func (s ImageClickerSettings) clone() ImageClickerSettings {
	c := s
	if s.SearchArea != nil {
		a := *s.SearchArea
		c.SearchArea = &a
	}
	return c
}

// ImageClicker repeatedly captures its search area and clicks every match
type ImageClicker struct {
	*base
	settings ImageClickerSettings
}

func newImageClicker(env *Env, id, name string, s ImageClickerSettings) *ImageClicker {
	t := &ImageClicker{base: newBase(env, id, name, KindImageClicker), settings: s}
	t.fields = t.calibrationFields
	t.apply = t.applyCalibration
	return t
}

// Settings returns a copy of the current settings
func (t *ImageClicker) Settings() ImageClickerSettings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings.clone()
}

// SetSettings replaces the settings; a running pass keeps its own copy
func (t *ImageClicker) SetSettings(s ImageClickerSettings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = s.clone()
}

func (t *ImageClicker) Profile() Profile {
	s := t.Settings()
	return Profile{ID: t.id, Name: t.Name(), Kind: t.kind, ImageClicker: &s}
}

func (t *ImageClicker) calibrationFields() []Field {
	s := t.Settings()
	return []Field{{Key: fieldSearchArea, Label: "Search area", Mode: calibration.ModeArea, Set: s.SearchArea != nil}}
}

func (t *ImageClicker) applyCalibration(key string, res calibration.Result, g coords.Geometry) error {
	if key != fieldSearchArea {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if res.Area.IsDegenerate() {
		return fmt.Errorf("search area %s has no size", res.Area)
	}
	n, ok := coords.Normalize(g, res.Area)
	if !ok {
		return fmt.Errorf("window geometry unavailable")
	}
	t.mu.Lock()
	t.settings.SearchArea = &n
	t.mu.Unlock()
	return nil
}

func (t *ImageClicker) Start() error {
	s := t.Settings()
	if s.Template == "" {
		return fmt.Errorf("image clicker has no template")
	}
	t.launch(func(ctl *worker.Control, h window.Handle) runSummary {
		return t.run(ctl, h, s)
	})
	return nil
}

func (t *ImageClicker) run(ctl *worker.Control, h window.Handle, s ImageClickerSettings) runSummary {
	if t.env.Templates == nil {
		return failRun(ctl, t.logger, fmt.Errorf("no template registry"))
	}
	needle, tmpl, err := t.env.Templates.Image(s.Template)
	if err != nil {
		return failRun(ctl, t.logger, err)
	}
	if cache := t.env.Templates.ImageCache(); cache != nil {
		defer cache.Release(s.Template)
	}

	threshold := s.Threshold
	if threshold <= 0 {
		threshold = tmpl.EffectiveThreshold()
	}
	interval := time.Duration(s.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = t.env.ClickerInterval
	}
	button := s.Button
	if button == "" {
		button = window.ButtonLeft
	}
	settle := t.env.Runner.ClickSettle
	if settle <= 0 {
		settle = actions.DefaultClickSettle
	}

	if _, ok := t.env.Desktop.Geometry(h); !ok {
		return failRun(ctl, t.logger, fmt.Errorf("target window unavailable"))
	}

	sum := runSummary{}
	clicks := 0
	for ctl.Running() {
		g, ok := t.env.Desktop.Geometry(h)
		if !ok {
			// Minimized or closed mid-run; try again next pass
			ctl.SetStatus("Error: target window unavailable, retrying")
			if !ctl.Sleep(interval) {
				break
			}
			continue
		}
		area := g.Bounds()
		if s.SearchArea != nil {
			area, ok = coords.Denormalize(g, *s.SearchArea)
			if !ok || area.IsDegenerate() {
				return failRun(ctl, t.logger, fmt.Errorf("search area %v is empty at %s", *s.SearchArea, g))
			}
		}

		sum.iterations++
		img, err := t.env.Desktop.CaptureRegion(h, area)
		if err != nil {
			// Transient; the next pass captures again
			ctl.SetStatus(fmt.Sprintf("Error: capture failed: %v", err))
			t.logger.Warn(fmt.Sprintf("Capture failed: %v", err))
		} else {
			matches := t.env.Matcher.FindMatches(img, needle, threshold)
			for _, m := range matches {
				if !ctl.Running() {
					break
				}
				c := m.Center()
				p := coords.Point{X: area.Left + c.X, Y: area.Top + c.Y}
				if err := clickAt(t.env.Desktop, h, p, button, s.Method); err != nil {
					t.logger.Warn(fmt.Sprintf("Click at %s failed: %v", p, err))
					continue
				}
				clicks++
				ctl.Sleep(settle)
			}
			ctl.SetStatus(fmt.Sprintf("Pass %d: %d match(es), %d click(s) total", sum.iterations, len(matches), clicks))
		}

		if s.MaxPasses > 0 && sum.iterations >= s.MaxPasses {
			if !ctl.Running() {
				break
			}
			ctl.Finish(worker.StatusCompleted)
			sum.outcome = string(actions.OutcomeCompleted)
			return sum
		}
		if !ctl.Sleep(interval) {
			break
		}
	}

	sum.outcome = string(actions.OutcomeStopped)
	return sum
}
