// Package ocr recognizes item stat text and decides whether it meets a target.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"jordanella.com/game-helper-go/internal/logging"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown OCR backend")

// Engine turns an image into text
type Engine interface {
	Recognize(ctx context.Context, img image.Image, decode Decode) (string, error)
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Backend string // "paddle" or "tesseract"

	// paddle
	OnnxRuntimeLib string
	DetModel       string
	RecModel       string
	Dict           string

	// tesseract
	Language string
}

// Open loads the configured backend. Model loading is slow, so callers
// should open one engine per run and reuse it.
func Open(cfg Config) (Engine, error) {
	logger := logging.NewLogger("OCR")

	switch strings.ToLower(cfg.Backend) {
	case "", "paddle":
		engine, err := newPaddleEngine(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load paddle OCR models: %w", err)
		}
		return engine, nil
	case "tesseract":
		return newTesseractEngine(cfg, logger), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// Loader opens engines; it is replaced in tests
type Loader func() (Engine, error)

// NewLoader returns a Loader bound to cfg
func NewLoader(cfg Config) Loader {
	return func() (Engine, error) {
		return Open(cfg)
	}
}

// decodeNotice logs once per engine when a requested decoder is not the
// backend's native one
type decodeNotice struct {
	native Strategy
	warned bool
}

func (n *decodeNotice) check(logger *logging.Logger, backend string, d Decode) {
	requested := d.Strategy
	if requested == "" {
		requested = Greedy
	}
	if requested == n.native || n.warned {
		return
	}
	n.warned = true
	logger.WarnWithContext("Requested decoder not available, using native decoder", map[string]interface{}{
		"backend":   backend,
		"requested": d.String(),
		"native":    string(n.native),
	})
}
