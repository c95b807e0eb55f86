package ocr

import (
	"context"
	"image"
	"sort"
	"strings"
	"sync"

	goocr "github.com/getcharzp/go-ocr"

	"jordanella.com/game-helper-go/internal/logging"
)

// paddleEngine runs PaddleOCR detection and recognition models through ONNX
// Runtime. The recognizer decodes greedily (CTC best path).
type paddleEngine struct {
	mu     sync.Mutex
	engine goocr.Engine
	logger *logging.Logger
	notice decodeNotice
}

func newPaddleEngine(cfg Config, logger *logging.Logger) (*paddleEngine, error) {
	engine, err := goocr.NewPaddleOcrEngine(goocr.Config{
		OnnxRuntimeLibPath: cfg.OnnxRuntimeLib,
		DetModelPath:       cfg.DetModel,
		RecModelPath:       cfg.RecModel,
		DictPath:           cfg.Dict,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Paddle OCR engine loaded")
	return &paddleEngine{
		engine: engine,
		logger: logger,
		notice: decodeNotice{native: Greedy},
	}, nil
}

func (p *paddleEngine) Recognize(ctx context.Context, img image.Image, decode Decode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.notice.check(p.logger, "paddle", decode)

	results, err := p.engine.RunOCR(img)
	if err != nil {
		return "", err
	}

	// Reading order: top to bottom, then left to right
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Box[1] != results[j].Box[1] {
			return results[i].Box[1] < results[j].Box[1]
		}
		return results[i].Box[0] < results[j].Box[0]
	})

	lines := make([]string, 0, len(results))
	for _, r := range results {
		if text := strings.TrimSpace(r.Text); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (p *paddleEngine) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine != nil {
		p.engine.Destroy()
		p.engine = nil
	}
	return nil
}
