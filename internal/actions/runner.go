package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/logging"
	"jordanella.com/game-helper-go/internal/ocr"
	"jordanella.com/game-helper-go/internal/window"
	"jordanella.com/game-helper-go/internal/worker"
)

const (
	DefaultClickSettle  = 100 * time.Millisecond
	DefaultRetryDelay   = 50 * time.Millisecond
	DefaultMinIteration = 50 * time.Millisecond

	StatusMatchFound = "MATCH FOUND"
)

// Outcome is how a run ended
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
	OutcomeMatched   Outcome = "matched"
)

// RunResult summarizes a finished run
type RunResult struct {
	Outcome    Outcome
	Iterations int
	Status     string
	Match      *ocr.Stat
	Err        error
}

// Desktop is what the runner needs from the window layer
type Desktop interface {
	Geometry(h window.Handle) (coords.Geometry, bool)
	window.Injector
	window.Capturer
}

// RunnerOptions tunes fixed delays
type RunnerOptions struct {
	ClickSettle time.Duration
	RetryDelay  time.Duration
	// MinIteration is the shortest time one loop iteration may take, so a
	// sequence of skipped actions does not spin
	MinIteration time.Duration
}

// Runner plays macro settings on a worker goroutine
type Runner struct {
	desktop Desktop
	loadOCR ocr.Loader
	opts    RunnerOptions
	logger  *logging.Logger
}

// NewRunner creates a runner. loadOCR may be nil when no OCR backend is configured.
func NewRunner(desktop Desktop, loadOCR ocr.Loader, opts RunnerOptions) *Runner {
	if opts.ClickSettle <= 0 {
		opts.ClickSettle = DefaultClickSettle
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MinIteration <= 0 {
		opts.MinIteration = DefaultMinIteration
	}
	return &Runner{
		desktop: desktop,
		loadOCR: loadOCR,
		opts:    opts,
		logger:  logging.NewLogger("MacroRunner"),
	}
}

// run carries the per-run state shared by the action handlers
type run struct {
	*Runner
	ctl    *worker.Control
	handle window.Handle
	engine ocr.Engine
	result RunResult
}

// step tells the loop whether to continue after an action
type step int

const (
	stepContinue step = iota
	stepEnd
)

// Run executes s against the window. It must be called from a worker task
// and owns the run's terminal status.
func (r *Runner) Run(ctl *worker.Control, handle window.Handle, s Settings) RunResult {
	rn := &run{Runner: r, ctl: ctl, handle: handle}
	log := r.logger.WithContext(map[string]interface{}{"macro": s.Name})

	ctl.SetStatus("Initializing")
	if _, ok := r.desktop.Geometry(handle); !ok {
		return rn.fail(errors.New("target window not found"))
	}

	if s.HasOCR() && r.loadOCR != nil {
		engine, err := r.loadOCR()
		if err != nil {
			return rn.fail(fmt.Errorf("failed to load OCR engine: %w", err))
		}
		rn.engine = engine
		defer func() {
			if err := engine.Close(); err != nil {
				log.Error("Failed to close OCR engine", err)
			}
		}()
	}

	total := s.Loop.Iterations()
	log.Info(fmt.Sprintf("Macro started (%d actions)", len(s.Actions)))

	for i := 1; total == 0 || i <= total; i++ {
		if !ctl.Running() {
			return rn.stopped()
		}
		rn.result.Iterations = i
		if total == 0 {
			ctl.SetStatus(fmt.Sprintf("Iteration %d (∞)", i))
		} else {
			ctl.SetStatus(fmt.Sprintf("Iteration %d/%d", i, total))
		}

		started := time.Now()
		for idx, action := range s.Actions {
			if !ctl.Running() {
				return rn.stopped()
			}
			if rn.execute(idx, action) == stepEnd {
				return rn.result
			}
		}
		if rest := r.opts.MinIteration - time.Since(started); rest > 0 && (total == 0 || i < total) {
			if !ctl.Sleep(rest) {
				return rn.stopped()
			}
		}
	}

	rn.result.Outcome = OutcomeCompleted
	rn.result.Status = worker.StatusCompleted
	ctl.Finish(worker.StatusCompleted)
	log.Info(fmt.Sprintf("Macro completed after %d iterations", rn.result.Iterations))
	return rn.result
}

func (rn *run) execute(idx int, action Action) step {
	switch a := action.(type) {
	case *Click:
		return rn.click(idx, a)
	case *TypeText:
		if err := rn.desktop.TypeText(a.Text); err != nil {
			rn.ctl.SetStatus(fmt.Sprintf("Error: type text failed: %v", err))
		}
		return stepContinue
	case *Delay:
		if a.Milliseconds > 0 {
			rn.ctl.Sleep(time.Duration(a.Milliseconds) * time.Millisecond)
		}
		if !rn.ctl.Running() {
			rn.stopped()
			return stepEnd
		}
		return stepContinue
	case *OcrSearch:
		return rn.ocrSearch(idx, a)
	}
	rn.ctl.SetStatus(fmt.Sprintf("Action %d: unsupported action %T skipped", idx+1, action))
	return stepContinue
}

func (rn *run) click(idx int, a *Click) step {
	if a.Coordinate == nil {
		rn.ctl.SetStatus(fmt.Sprintf("Action %d: click coordinate not set, skipped", idx+1))
		return stepContinue
	}
	p := *a.Coordinate
	button := a.button()

	switch a.method() {
	case ClickAsync:
		if err := rn.desktop.PostClick(rn.handle, p, button); err != nil {
			rn.ctl.SetStatus(fmt.Sprintf("Error: click failed: %v", err))
		}
	case ClickMouseMove:
		g, ok := rn.desktop.Geometry(rn.handle)
		if !ok {
			rn.ctl.SetStatus("Error: window geometry unavailable")
			return stepContinue
		}
		if err := rn.desktop.MoveCursorAndClick(coords.ToScreen(g, p), button); err != nil {
			rn.ctl.SetStatus(fmt.Sprintf("Error: click failed: %v", err))
		}
	default:
		if err := rn.desktop.SendClick(rn.handle, p, button); err != nil {
			if !rn.ctl.Sleep(rn.opts.RetryDelay) {
				rn.stopped()
				return stepEnd
			}
			if err := rn.desktop.SendClick(rn.handle, p, button); err != nil {
				rn.logger.Debug(fmt.Sprintf("Direct click at %v dropped after retry: %v", p, err))
			}
		}
	}

	if !rn.ctl.Sleep(rn.opts.ClickSettle) {
		rn.stopped()
		return stepEnd
	}
	return stepContinue
}

func (rn *run) ocrSearch(idx int, a *OcrSearch) step {
	if rn.engine == nil {
		rn.fail(fmt.Errorf("action %d: OCR engine not loaded", idx+1))
		return stepEnd
	}
	if a.Region == nil || a.Region.IsDegenerate() {
		rn.fail(fmt.Errorf("action %d: OCR region not set", idx+1))
		return stepEnd
	}
	if !rn.ctl.Running() {
		rn.stopped()
		return stepEnd
	}

	img, err := rn.desktop.CaptureRegion(rn.handle, *a.Region)
	if err != nil {
		rn.ctl.SetStatus(fmt.Sprintf("Capture failed: %v", err))
		return stepContinue
	}
	if !rn.ctl.Running() {
		rn.stopped()
		return stepEnd
	}

	text, err := rn.engine.Recognize(rn.ctl.Context(), a.Preprocess.Apply(img), a.Decode)
	if err != nil {
		if errors.Is(err, context.Canceled) || !rn.ctl.Running() {
			rn.stopped()
			return stepEnd
		}
		rn.ctl.SetStatus(fmt.Sprintf("OCR failed: %v", err))
		return stepContinue
	}

	stat, ok := ocr.ParseStat(text)
	if !ok {
		rn.ctl.SetStatus(fmt.Sprintf("Iteration %d: no parse", rn.result.Iterations))
		return stepContinue
	}

	target := a.Target()
	if ocr.MatchesTargetWith(stat.Name, stat.Value, target) {
		status := fmt.Sprintf("%s: %s", StatusMatchFound, stat)
		rn.result.Outcome = OutcomeMatched
		rn.result.Status = status
		rn.result.Match = &stat
		rn.ctl.Finish(status)
		rn.logger.InfoWithContext("OCR target matched", map[string]interface{}{
			"stat":      stat.Name,
			"value":     stat.Value,
			"target":    target.String(),
			"iteration": rn.result.Iterations,
		})
		return stepEnd
	}

	rn.ctl.SetStatus(fmt.Sprintf("Iteration %d: detected %s (want %s)", rn.result.Iterations, stat, target))
	return stepContinue
}

func (rn *run) fail(err error) RunResult {
	status := "Error: " + err.Error()
	rn.result.Outcome = OutcomeFailed
	rn.result.Status = status
	rn.result.Err = err
	rn.ctl.Finish(status)
	rn.logger.Error("Macro failed", err)
	return rn.result
}

func (rn *run) stopped() RunResult {
	rn.result.Outcome = OutcomeStopped
	rn.result.Status = worker.StatusStopped
	return rn.result
}
