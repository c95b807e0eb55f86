package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Heading creates a large, bold heading
func Heading(text string) *widget.RichText {
	return styledText(text, theme.SizeNameHeadingText, fyne.TextStyle{Bold: true})
}

// Subheading creates a section or card title
func Subheading(text string) *widget.RichText {
	return styledText(text, theme.SizeNameSubHeadingText, fyne.TextStyle{Bold: true})
}

// Caption creates small hint text
func Caption(text string) *widget.RichText {
	return styledText(text, theme.SizeNameCaptionText, fyne.TextStyle{})
}

// BoldText creates bold text at body size
func BoldText(text string) *widget.RichText {
	return styledText(text, theme.SizeNameText, fyne.TextStyle{Bold: true})
}

// StatusLabel is a wrapping label whose importance follows the status text:
// errors are red, matches and completions green. Place the embedded Label
// in containers.
type StatusLabel struct {
	*widget.Label
}

// NewStatusLabel creates an empty status label
func NewStatusLabel() *StatusLabel {
	l := widget.NewLabel("")
	l.Wrapping = fyne.TextWrapWord
	return &StatusLabel{Label: l}
}

// SetStatus updates the text when it changed
func (s *StatusLabel) SetStatus(status string) {
	if s.Text == status {
		return
	}
	s.Importance = StatusImportance(status)
	s.SetText(status)
}

func styledText(text string, size fyne.ThemeSizeName, style fyne.TextStyle) *widget.RichText {
	return widget.NewRichText(&widget.TextSegment{
		Text: text,
		Style: widget.RichTextStyle{
			SizeName:  size,
			TextStyle: style,
		},
	})
}
