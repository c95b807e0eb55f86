package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Card wraps content in a rounded, outlined background
func Card(content fyne.CanvasObject) *fyne.Container {
	bg := canvas.NewRectangle(theme.Color(theme.ColorNameInputBackground))
	bg.CornerRadius = 4
	bg.StrokeColor = theme.Color(theme.ColorNameSeparator)
	bg.StrokeWidth = 1
	return container.NewStack(bg, container.NewPadded(content))
}

// CardSection is a card with a subheading above its content
func CardSection(title string, content fyne.CanvasObject) *fyne.Container {
	return Card(container.NewVBox(Subheading(title), content))
}

// SectionHeader places a title on the left and actions on the right
func SectionHeader(title string, actions ...fyne.CanvasObject) *fyne.Container {
	header := Subheading(title)
	if len(actions) == 0 {
		return container.NewVBox(header)
	}
	return container.NewBorder(nil, nil, header, container.NewHBox(actions...), layout.NewSpacer())
}

// FieldRow stacks a bold label above an input
func FieldRow(label string, field fyne.CanvasObject) *fyne.Container {
	return container.NewVBox(BoldText(label), field)
}

// InfoRow shows a label and a value side by side
func InfoRow(label, value string) *fyne.Container {
	return container.NewHBox(BoldText(label+":"), widget.NewLabel(value))
}

// ActionBar right-aligns buttons
func ActionBar(actions ...fyne.CanvasObject) *fyne.Container {
	return container.NewBorder(nil, nil, nil, container.NewHBox(actions...), layout.NewSpacer())
}
