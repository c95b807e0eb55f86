package window

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"

	"jordanella.com/game-helper-go/internal/coords"
)

// Physical input and screen capture through robotgo. These move the real cursor.

func robotMoveAndClick(screen coords.Point, button Button) error {
	robotgo.Move(screen.X, screen.Y)
	robotgo.MilliSleep(15)
	robotgo.Click(string(button), false)
	return nil
}

func robotType(text string) error {
	if text == "" {
		return nil
	}
	robotgo.TypeStr(text)
	return nil
}

func robotScroll(screen coords.Point, direction ScrollDirection, amount int) error {
	if amount <= 0 {
		return nil
	}
	robotgo.Move(screen.X, screen.Y)
	robotgo.ScrollDir(amount, string(direction))
	return nil
}

func robotCapture(screen coords.Rect) (*image.RGBA, error) {
	if screen.IsDegenerate() {
		return nil, fmt.Errorf("invalid capture region %v", screen)
	}
	img, err := robotgo.CaptureImg(screen.Left, screen.Top, screen.Width, screen.Height)
	if err != nil {
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}
	return toRGBA(img), nil
}
