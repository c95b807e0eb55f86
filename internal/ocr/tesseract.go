package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"jordanella.com/game-helper-go/internal/logging"
)

// tesseractEngine wraps a Tesseract client. Tesseract always runs its own
// beam search over the LSTM output.
type tesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *logging.Logger
	notice decodeNotice
}

func newTesseractEngine(cfg Config, logger *logging.Logger) *tesseractEngine {
	client := gosseract.NewClient()
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	client.SetLanguage(lang)
	client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK)
	logger.InfoWithContext("Tesseract OCR client created", map[string]interface{}{"language": lang})

	return &tesseractEngine{
		client: client,
		logger: logger,
		notice: decodeNotice{native: BeamSearch},
	}
}

func (t *tesseractEngine) Recognize(ctx context.Context, img image.Image, decode Decode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.notice.check(t.logger, "tesseract", decode)

	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (t *tesseractEngine) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
