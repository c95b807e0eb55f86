package components

import (
	"testing"

	"fyne.io/fyne/v2/widget"
)

func TestStatusImportance(t *testing.T) {
	tests := []struct {
		status string
		want   widget.Importance
	}{
		{"", widget.LowImportance},
		{"Error: window not found", widget.DangerImportance},
		{"MATCH FOUND: Attack 120", widget.SuccessImportance},
		{"Collection complete", widget.SuccessImportance},
		{"Stopped", widget.WarningImportance},
		{"Iteration 3", widget.MediumImportance},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := StatusImportance(tt.status); got != tt.want {
				t.Errorf("StatusImportance(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
