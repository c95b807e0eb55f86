package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	DefaultWindowSize = fyne.NewSize(960, 680)
	OverlayWindowSize = fyne.NewSize(300, 260)

	ColorPrimary    = color.NRGBA{R: 0, G: 137, B: 123, A: 255} // Teal
	ColorSuccess    = color.NRGBA{R: 76, G: 175, B: 80, A: 255}
	ColorWarning    = color.NRGBA{R: 255, G: 152, B: 0, A: 255}
	ColorError      = color.NRGBA{R: 229, G: 57, B: 53, A: 255}
	ColorBackground = color.NRGBA{R: 22, G: 24, B: 27, A: 255}
)

// MacroTheme is the dark theme of the helper window
type MacroTheme struct {
	// Compact shrinks text and padding for the overlay
	Compact bool
}

func (t *MacroTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameButton:
		return ColorPrimary
	case theme.ColorNameBackground:
		return ColorBackground
	case theme.ColorNameSuccess:
		return ColorSuccess
	case theme.ColorNameWarning:
		return ColorWarning
	case theme.ColorNameError:
		return ColorError
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (t *MacroTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *MacroTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *MacroTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		if t.Compact {
			return 12
		}
		return 14
	case theme.SizeNamePadding:
		if t.Compact {
			return 4
		}
		return 6
	}
	return theme.DefaultTheme().Size(name)
}
