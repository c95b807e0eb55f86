package components

import (
	"strings"

	"fyne.io/fyne/v2/widget"
)

// StatusImportance picks a label importance for a run status string
func StatusImportance(status string) widget.Importance {
	switch {
	case strings.HasPrefix(status, "Error"):
		return widget.DangerImportance
	case strings.Contains(status, "MATCH FOUND"), strings.HasPrefix(status, "Complete"), strings.HasPrefix(status, "Collection complete"):
		return widget.SuccessImportance
	case strings.HasPrefix(status, "Stopped"):
		return widget.WarningImportance
	case status == "":
		return widget.LowImportance
	}
	return widget.MediumImportance
}
