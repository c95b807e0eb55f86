package tools

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/collection"
	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/cv"
	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/window"
	"jordanella.com/game-helper-go/internal/window/windowtest"
	"jordanella.com/game-helper-go/pkg/templates"
)

const gameWindow window.Handle = 42

var gameGeometry = coords.Geometry{X: 200, Y: 100, Width: 800, Height: 600}

// recordingBus keeps every published event and delivers nothing
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Subscribe(events.EventType, events.EventHandler) events.SubscriptionID {
	return 0
}
func (b *recordingBus) Unsubscribe(events.SubscriptionID) {}
func (b *recordingBus) Publish(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}
func (b *recordingBus) PublishAsync(e events.Event) { b.Publish(e) }
func (b *recordingBus) Stop()                       {}

func (b *recordingBus) types() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.EventType, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

type finishedRun struct {
	outcome    string
	status     string
	iterations int
}

type fakeRecorder struct {
	mu       sync.Mutex
	next     int64
	started  []string
	finished map[int64]finishedRun
}

func (r *fakeRecorder) StartRun(toolID, toolName, kind string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.started = append(r.started, toolID)
	return r.next, nil
}

func (r *fakeRecorder) FinishRun(runID int64, outcome, status string, iterations int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished == nil {
		r.finished = make(map[int64]finishedRun)
	}
	r.finished[runID] = finishedRun{outcome, status, iterations}
	return nil
}

func (r *fakeRecorder) last() (finishedRun, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.finished[r.next]
	return f, ok
}

type fixture struct {
	desktop  *windowtest.Desktop
	bus      *recordingBus
	recorder *fakeRecorder
	registry *templates.TemplateRegistry
	// templateDir is the registry's base path
	templateDir string
	manager     *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		desktop:     windowtest.New(gameWindow, gameGeometry),
		bus:         &recordingBus{},
		recorder:    &fakeRecorder{},
		registry:    templates.NewTemplateRegistry(dir),
		templateDir: dir,
	}
	f.manager = NewManager(Env{
		Desktop:   f.desktop,
		Matcher:   cv.PixelMatcher{Method: cv.MatchMethodSSD},
		Templates: f.registry,
		Runner:    actions.RunnerOptions{ClickSettle: time.Millisecond, RetryDelay: time.Millisecond},
		Bus:       f.bus,
		Recorder:  f.recorder,
	})
	return f
}

func (f *fixture) first(t *testing.T, kind Kind) Tool {
	t.Helper()
	tools := f.manager.ToolsOfKind(kind)
	if len(tools) == 0 {
		t.Fatalf("No %s tool", kind)
	}
	return tools[0]
}

func waitDone(t *testing.T, tool Tool) {
	t.Helper()
	if !tool.Wait(2 * time.Second) {
		t.Fatalf("%s did not finish", tool.Name())
	}
}

func TestNewManagerHasOneProfilePerKind(t *testing.T) {
	f := newFixture(t)

	tools := f.manager.Tools()
	if len(tools) != len(Kinds) {
		t.Fatalf("Expected %d tools, got %d", len(Kinds), len(tools))
	}
	for i, k := range Kinds {
		if tools[i].Kind() != k {
			t.Errorf("Tool %d: expected kind %s, got %s", i, k, tools[i].Kind())
		}
		if _, err := uuid.Parse(tools[i].ID()); err != nil {
			t.Errorf("Tool %d has a non-UUID id %q", i, tools[i].ID())
		}
	}
}

func TestDeleteProfile(t *testing.T) {
	f := newFixture(t)
	only := f.first(t, KindCustomMacro)

	if err := f.manager.DeleteProfile(only.ID()); !errors.Is(err, ErrAlreadyLastProfile) {
		t.Fatalf("Expected ErrAlreadyLastProfile, got %v", err)
	}

	added, err := f.manager.AddProfile(KindCustomMacro, "")
	if err != nil {
		t.Fatalf("AddProfile failed: %v", err)
	}
	if added.Name() != "Custom Macro 2" {
		t.Errorf("Unexpected generated name %q", added.Name())
	}

	if err := f.manager.DeleteProfile(only.ID()); err != nil {
		t.Fatalf("DeleteProfile failed: %v", err)
	}
	// The surviving profile is still reachable by its id
	if got, err := f.manager.Get(added.ID()); err != nil || got != added {
		t.Errorf("Expected the added profile to survive, got %v %v", got, err)
	}
	if _, err := f.manager.Get(only.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := f.manager.DeleteProfile("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	types := f.bus.types()
	if len(types) != 2 || types[0] != events.EventTypeProfileAdded || types[1] != events.EventTypeProfileDeleted {
		t.Errorf("Unexpected events %v", types)
	}
}

func delayLoop(name string) actions.Settings {
	return actions.Settings{
		Name:    name,
		Actions: actions.Sequence{&actions.Delay{Milliseconds: 5}},
		Loop:    actions.Loop{Enabled: true, Infinite: true},
	}
}

func TestStartStopsOtherTools(t *testing.T) {
	f := newFixture(t)
	a := f.first(t, KindCustomMacro).(*Macro)
	a.SetSettings(delayLoop("a"))
	bt, err := f.manager.AddProfile(KindCustomMacro, "b")
	if err != nil {
		t.Fatalf("AddProfile failed: %v", err)
	}
	b := bt.(*Macro)
	b.SetSettings(delayLoop("b"))

	if err := f.manager.Start(a.ID()); err != nil {
		t.Fatalf("Start a failed: %v", err)
	}
	if err := f.manager.Start(b.ID()); err != nil {
		t.Fatalf("Start b failed: %v", err)
	}
	if a.IsRunning() {
		t.Error("Expected a to be stopped when b started")
	}
	if !b.IsRunning() {
		t.Error("Expected b to be running")
	}

	if n := f.manager.StopAll(); n != 1 {
		t.Errorf("Expected StopAll to stop 1 tool, got %d", n)
	}
	waitDone(t, a)
	waitDone(t, b)
	if f.manager.AnyRunning() {
		t.Error("Expected nothing running")
	}
	if b.Status() != "Stopped" {
		t.Errorf("Expected Stopped status, got %q", b.Status())
	}
}

func TestMacroStartRefusesInvalidSettings(t *testing.T) {
	f := newFixture(t)
	m := f.first(t, KindCustomMacro).(*Macro)
	m.SetSettings(actions.Settings{Name: "empty"})

	err := f.manager.Start(m.ID())
	if !errors.Is(err, actions.ErrNoActions) {
		t.Fatalf("Expected ErrNoActions, got %v", err)
	}
	if m.IsRunning() || len(f.recorder.started) != 0 {
		t.Error("Refused start must not run or record anything")
	}
}

func TestMacroRunIsRecorded(t *testing.T) {
	f := newFixture(t)
	m := f.first(t, KindCustomMacro).(*Macro)
	m.SetSettings(actions.Settings{
		Name:    "once",
		Actions: actions.Sequence{&actions.TypeText{Text: "hi"}, &actions.Delay{Milliseconds: 1}},
	})

	if err := f.manager.Start(m.ID()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, m)

	run, ok := f.recorder.last()
	if !ok {
		t.Fatal("Run was not recorded")
	}
	if run.outcome != string(actions.OutcomeCompleted) || run.iterations != 1 || run.status != "Completed" {
		t.Errorf("Unexpected run record %+v", run)
	}
	if typed := f.desktop.Typed(); len(typed) != 1 || typed[0] != "hi" {
		t.Errorf("Expected the text to be typed, got %v", typed)
	}

	types := f.bus.types()
	if len(types) != 2 || types[0] != events.EventTypeToolStarted || types[1] != events.EventTypeToolCompleted {
		t.Errorf("Unexpected events %v", types)
	}
}

func TestMacroExportThenImport(t *testing.T) {
	f := newFixture(t)
	src := f.first(t, KindCustomMacro).(*Macro)
	src.SetSettings(delayLoop("source"))
	path := filepath.Join(t.TempDir(), "macro.yaml")
	if err := src.Export(path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	imported, err := f.manager.ImportMacro(path)
	if err != nil {
		t.Fatalf("ImportMacro failed: %v", err)
	}
	if imported.ID() == src.ID() {
		t.Error("Expected the import to create a new profile")
	}
	got := imported.Settings()
	if got.Name != imported.Name() || len(got.Actions) != 1 || !got.Loop.Infinite {
		t.Errorf("Unexpected imported macro %+v", got)
	}
}

func TestManagerImportMacroRejectsEmptyFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := actions.SaveSettingsFile(path, actions.Settings{Name: "empty"}); err != nil {
		t.Fatal(err)
	}

	before := len(f.manager.Tools())
	if _, err := f.manager.ImportMacro(path); !errors.Is(err, actions.ErrNoActions) {
		t.Fatalf("Expected ErrNoActions, got %v", err)
	}
	if len(f.manager.Tools()) != before {
		t.Error("A rejected import must not add a profile")
	}
}

func TestManagerImportMacroPicksKind(t *testing.T) {
	tests := []struct {
		name     string
		settings actions.Settings
		want     Kind
	}{
		{"custom", delayLoop("clicks"), KindCustomMacro},
		{"ocr", DefaultOcrMacro("reroll"), KindOcrMacro},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			path := filepath.Join(t.TempDir(), tt.name+".yaml")
			if err := actions.SaveSettingsFile(path, tt.settings); err != nil {
				t.Fatal(err)
			}

			m, err := f.manager.ImportMacro(path)
			if err != nil {
				t.Fatalf("ImportMacro failed: %v", err)
			}
			if m.Kind() != tt.want || m.Name() != tt.settings.Name {
				t.Errorf("Got %s %q, want %s %q", m.Kind(), m.Name(), tt.want, tt.settings.Name)
			}
			if len(f.manager.ToolsOfKind(tt.want)) != 2 {
				t.Errorf("Expected the import to add a second %s profile", tt.want)
			}
		})
	}
}

// press simulates a fresh left-button press at a window-relative point
func press(f *fixture, p coords.Point) {
	f.desktop.SetCursor(coords.ToScreen(gameGeometry, p), gameWindow)
	f.desktop.SetLeftButton(true)
	f.manager.Update(gameWindow)
}

func TestCalibrateMacroClick(t *testing.T) {
	f := newFixture(t)
	m := f.first(t, KindCustomMacro).(*Macro)

	fields := m.Fields()
	if len(fields) != 1 || fields[0].Key != ActionField(0) || fields[0].Set {
		t.Fatalf("Unexpected fields %+v", fields)
	}
	if err := f.manager.Calibrate(m.ID(), ActionField(0)); err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	if key, ok := m.Calibrating(); !ok || key != ActionField(0) {
		t.Fatalf("Expected pending calibration, got %q %v", key, ok)
	}

	press(f, coords.Point{X: 120, Y: 80})

	if _, ok := m.Calibrating(); ok {
		t.Error("Expected calibration to complete")
	}
	click := m.Settings().Actions[0].(*actions.Click)
	if click.Coordinate == nil || *click.Coordinate != (coords.Point{X: 120, Y: 80}) {
		t.Errorf("Expected window-relative coordinate, got %v", click.Coordinate)
	}
	types := f.bus.types()
	if len(types) != 1 || types[0] != events.EventTypeCalibrationCompleted {
		t.Errorf("Expected a calibration event, got %v", types)
	}
}

func TestCalibrateUnknownField(t *testing.T) {
	f := newFixture(t)
	m := f.first(t, KindCustomMacro)

	if err := m.Calibrate("action:7"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Expected ErrUnknownField, got %v", err)
	}
}

func TestCalibrateCancelsOtherTools(t *testing.T) {
	f := newFixture(t)
	macro := f.first(t, KindCustomMacro)
	filler := f.first(t, KindCollectionFiller)

	if err := f.manager.Calibrate(macro.ID(), ActionField(0)); err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	if err := f.manager.Calibrate(filler.ID(), "confirm"); err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	if _, ok := macro.Calibrating(); ok {
		t.Error("Expected the first gesture to be cancelled")
	}
	if !f.manager.Calibrating() {
		t.Error("Expected a pending gesture")
	}
}

func TestCalibrateFillerAreaIsNormalized(t *testing.T) {
	f := newFixture(t)
	filler := f.first(t, KindCollectionFiller).(*CollectionFiller)

	if err := filler.Calibrate("items"); err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	press(f, coords.Point{X: 80, Y: 60})
	f.desktop.SetCursor(coords.ToScreen(gameGeometry, coords.Point{X: 240, Y: 180}), gameWindow)
	f.manager.Update(gameWindow)
	f.desktop.SetLeftButton(false)
	f.manager.Update(gameWindow)

	items := filler.Settings().Items
	want := coords.NormalizedRect{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}
	if items == nil || *items != want {
		t.Fatalf("Expected %+v, got %+v", want, items)
	}

	// After a resize the same fraction maps to new pixels
	layout := filler.Settings().Layout(coords.Geometry{Width: 400, Height: 300})
	if layout.Items != (coords.Rect{Left: 40, Top: 30, Width: 80, Height: 60}) {
		t.Errorf("Unexpected denormalized items %v", layout.Items)
	}
}

func TestFillerStartRefusesIncompleteLayout(t *testing.T) {
	f := newFixture(t)
	filler := f.first(t, KindCollectionFiller)

	err := f.manager.Start(filler.ID())
	if !errors.Is(err, collection.ErrLayoutIncomplete) {
		t.Fatalf("Expected ErrLayoutIncomplete, got %v", err)
	}
	if filler.IsRunning() || len(f.recorder.started) != 0 {
		t.Error("Refused start must not run or record anything")
	}
}

// completeFillerSettings calibrates every region and button of the filler
func completeFillerSettings() CollectionFillerSettings {
	rect := &coords.NormalizedRect{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}
	point := &coords.NormalizedPoint{X: 0.5, Y: 0.5}
	s := CollectionFillerSettings{
		Tabs: rect, Dungeons: rect, Items: rect,
		AutoRefill: point, Register: point, Confirm: point, Advance: point,
	}
	for i := range s.Pages {
		s.Pages[i] = point
	}
	return s
}

func TestCollectionFillerSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *CollectionFillerSettings)
		wantErr string
	}{
		{"complete", func(s *CollectionFillerSettings) {}, ""},
		{"no items", func(s *CollectionFillerSettings) { s.Items = nil }, "items region"},
		{"no confirm", func(s *CollectionFillerSettings) { s.Confirm = nil }, "confirm button"},
		{"no page 4", func(s *CollectionFillerSettings) { s.Pages[3] = nil }, "page 4 button"},
		{"no advance", func(s *CollectionFillerSettings) { s.Advance = nil }, "advance button"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := completeFillerSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFillerUsesBareMarkerImage(t *testing.T) {
	f := newFixture(t)
	path := writeMarker(t, f.templateDir, color.RGBA{R: 255, A: 255})
	if err := os.Rename(path, filepath.Join(f.templateDir, templates.MarkerRedDot+".png")); err != nil {
		t.Fatal(err)
	}

	filler := f.first(t, KindCollectionFiller).(*CollectionFiller)
	filler.SetSettings(completeFillerSettings())
	if err := f.manager.Start(filler.ID()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, filler)

	// The blank capture carries no marker, so the first tab scan finishes the run
	if filler.Status() != collection.StatusComplete {
		t.Errorf("Expected %q, got %q", collection.StatusComplete, filler.Status())
	}
	if !f.registry.Has(templates.MarkerRedDot) {
		t.Error("Expected the bare marker to be registered")
	}
	run, ok := f.recorder.last()
	if !ok || run.outcome != string(actions.OutcomeCompleted) {
		t.Errorf("Expected a completed run, got %+v", run)
	}
}

func writeMarker(t *testing.T, dir string, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	path := filepath.Join(dir, "marker.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create marker: %v", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode marker: %v", err)
	}
	return path
}

func TestImageClickerClicksMatches(t *testing.T) {
	f := newFixture(t)
	red := color.RGBA{R: 255, A: 255}
	path := writeMarker(t, t.TempDir(), red)
	if err := f.registry.Register(cv.Template{Name: "button", Path: path, Threshold: 0.95}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	screen := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for i := 3; i < len(screen.Pix); i += 4 {
		screen.Pix[i] = 255
	}
	for y := 30; y < 34; y++ {
		for x := 20; x < 24; x++ {
			screen.SetRGBA(x, y, red)
		}
	}
	f.desktop.SetCapture(screen, nil)

	clicker := f.first(t, KindImageClicker).(*ImageClicker)
	clicker.SetSettings(ImageClickerSettings{Template: "button", MaxPasses: 1})

	if err := f.manager.Start(clicker.ID()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, clicker)

	clicks := f.desktop.Clicks()
	if len(clicks) != 1 {
		t.Fatalf("Expected 1 click, got %v", clicks)
	}
	if clicks[0].Method != "send" || clicks[0].Point != (coords.Point{X: 22, Y: 32}) {
		t.Errorf("Unexpected click %+v", clicks[0])
	}
	if clicker.Status() != "Completed" {
		t.Errorf("Expected Completed, got %q", clicker.Status())
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestImageClickerSurvivesWindowLoss(t *testing.T) {
	f := newFixture(t)
	path := writeMarker(t, t.TempDir(), color.RGBA{R: 255, A: 255})
	if err := f.registry.Register(cv.Template{Name: "button", Path: path, Threshold: 0.95}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	clicker := f.first(t, KindImageClicker).(*ImageClicker)
	clicker.SetSettings(ImageClickerSettings{Template: "button", IntervalMs: 5})
	if err := f.manager.Start(clicker.ID()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		clicker.Stop()
		waitDone(t, clicker)
	}()

	eventually(t, "first pass", func() bool { return strings.HasPrefix(clicker.Status(), "Pass") })

	f.desktop.SetValid(false)
	eventually(t, "retry status", func() bool { return strings.Contains(clicker.Status(), "unavailable") })
	if !clicker.IsRunning() {
		t.Fatal("Losing the window mid-run must not end the run")
	}

	f.desktop.SetValid(true)
	eventually(t, "recovery", func() bool { return strings.HasPrefix(clicker.Status(), "Pass") })
}

func TestImageClickerFailsWithoutWindowAtStart(t *testing.T) {
	f := newFixture(t)
	path := writeMarker(t, t.TempDir(), color.RGBA{R: 255, A: 255})
	if err := f.registry.Register(cv.Template{Name: "button", Path: path, Threshold: 0.95}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	f.desktop.SetValid(false)

	clicker := f.first(t, KindImageClicker).(*ImageClicker)
	clicker.SetSettings(ImageClickerSettings{Template: "button", IntervalMs: 5})
	if err := f.manager.Start(clicker.ID()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, clicker)

	if !strings.HasPrefix(clicker.Status(), "Error:") {
		t.Errorf("Expected an error status, got %q", clicker.Status())
	}
	run, ok := f.recorder.last()
	if !ok || run.outcome != string(actions.OutcomeFailed) {
		t.Errorf("Expected a failed run, got %+v", run)
	}
}

func TestImageClickerWithoutTemplate(t *testing.T) {
	f := newFixture(t)
	clicker := f.first(t, KindImageClicker)

	if err := f.manager.Start(clicker.ID()); err == nil {
		t.Error("Expected start to be refused without a template")
	}
}

func TestProfilesRoundTripThroughLoad(t *testing.T) {
	f := newFixture(t)
	m := f.first(t, KindOcrMacro)
	m.SetName("Rings")

	profiles := f.manager.Profiles()
	if err := f.manager.Load(profiles); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	again, err := f.manager.Get(m.ID())
	if err != nil {
		t.Fatalf("Expected the id to survive a reload: %v", err)
	}
	if again.Name() != "Rings" || again.Kind() != KindOcrMacro {
		t.Errorf("Unexpected reloaded tool %s/%s", again.Name(), again.Kind())
	}
	settings := again.(*Macro).Settings()
	if !settings.HasOCR() || settings.Loop.Iterations() != 0 {
		t.Errorf("Expected the OCR template with an infinite loop, got %+v", settings)
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	f := newFixture(t)

	err := f.manager.Load([]Profile{{ID: "x", Name: "bad", Kind: "teleporter"}})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}
