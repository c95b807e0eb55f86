package templates

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/cv"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.SetRGBA(1, 1, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFromDirectory(t *testing.T) {
	base := t.TempDir()
	regDir := filepath.Join(base, "registry")
	if err := os.MkdirAll(regDir, 0755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(base, "red_dot.png"))

	yamlData := `templates:
  - name: red_dot
    path: red_dot.png
    threshold: 0.9
    preload: true
  - name: close_button
    path: close.png
    region:
      left: 10
      top: 20
      width: 30
      height: 40
`
	if err := os.WriteFile(filepath.Join(regDir, "markers.yaml"), []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(regDir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	tr := NewTemplateRegistry(base)
	if err := tr.LoadFromDirectory(regDir); err != nil {
		t.Fatalf("LoadFromDirectory failed: %v", err)
	}

	if got := tr.List(); len(got) != 2 || got[0] != "close_button" || got[1] != "red_dot" {
		t.Errorf("Unexpected templates %v", got)
	}

	closeBtn, ok := tr.Get("close_button")
	if !ok {
		t.Fatal("close_button not registered")
	}
	if closeBtn.Threshold != cv.DefaultThreshold {
		t.Errorf("Expected default threshold, got %v", closeBtn.Threshold)
	}
	if closeBtn.Region == nil || *closeBtn.Region != (coords.Rect{Left: 10, Top: 20, Width: 30, Height: 40}) {
		t.Errorf("Unexpected region %v", closeBtn.Region)
	}

	// close.png does not exist, so only the preloaded template is usable
	img, tmpl, err := tr.Image(MarkerRedDot)
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if img.Bounds().Dx() != 3 || tmpl.Threshold != 0.9 {
		t.Errorf("Unexpected image %v / template %+v", img.Bounds(), tmpl)
	}
	if _, _, err := tr.Image("close_button"); err == nil {
		t.Error("Expected error for missing image file")
	}

	stats := tr.CacheStats()
	if stats.Hits != 1 || stats.Misses != 0 {
		t.Errorf("Expected preloaded hit, got %+v", stats)
	}
}

func TestLoadFromFileValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "templates:\n  - path: a.png\n"},
		{"missing path", "templates:\n  - name: a\n"},
		{"bad yaml", "templates: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "t.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if err := NewTemplateRegistry(t.TempDir()).LoadFromFile(path); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestImageCacheReleaseAndForget(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "dot.png")
	writePNG(t, path)

	ic := NewImageCache()
	if err := ic.Register(cv.Template{Name: "dot", Path: path}, false, true); err != nil {
		t.Fatal(err)
	}

	if _, _, err := ic.Get("dot"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ic.Get("dot"); err != nil {
		t.Fatal(err)
	}
	if err := ic.Release("dot"); err != nil {
		t.Fatal(err)
	}

	stats := ic.Stats()
	if stats.Misses != 1 || stats.Hits != 1 || stats.Unloads != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	ic.Forget("dot")
	if _, _, err := ic.Get("dot"); err == nil {
		t.Error("Expected error after Forget")
	}
}

func TestGetOrDefault(t *testing.T) {
	tr := NewTemplateRegistry("assets").WithoutImageCache()
	got := tr.GetOrDefault("gear", 0.75)
	if got.Path != filepath.Join("assets", "gear.png") || got.Threshold != 0.75 {
		t.Errorf("Unexpected default %+v", got)
	}
	if tr.Has("gear") {
		t.Error("GetOrDefault must not register")
	}
}
