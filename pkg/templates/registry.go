package templates

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/cv"
	"jordanella.com/game-helper-go/internal/logging"
)

// Well-known marker names used by the built-in tools
const (
	MarkerRedDot = "red_dot"
)

// TemplateRegistry manages marker templates loaded from YAML files
type TemplateRegistry struct {
	mu         sync.RWMutex
	templates  map[string]cv.Template
	basePath   string      // Base path for template image files
	imageCache *ImageCache // Optional: for caching loaded images
	logger     *logging.Logger
}

// TemplateDefinition represents a template in the YAML file
type TemplateDefinition struct {
	Name        string     `yaml:"name"`
	Path        string     `yaml:"path"`
	Threshold   float64    `yaml:"threshold"`
	Region      *RegionDef `yaml:"region,omitempty"`
	Preload     bool       `yaml:"preload,omitempty"`      // Load image at startup
	UnloadAfter bool       `yaml:"unload_after,omitempty"` // Unload after use
}

// RegionDef is a window-relative search area in the YAML file
type RegionDef struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TemplateFile represents the structure of a template YAML file
type TemplateFile struct {
	Templates []TemplateDefinition `yaml:"templates"`
}

// NewTemplateRegistry creates a new template registry.
// basePath is the root directory where template image files are stored.
func NewTemplateRegistry(basePath string) *TemplateRegistry {
	return &TemplateRegistry{
		templates:  make(map[string]cv.Template),
		basePath:   basePath,
		imageCache: NewImageCache(),
		logger:     logging.NewLogger("TemplateRegistry"),
	}
}

// WithoutImageCache disables image caching for this registry
func (tr *TemplateRegistry) WithoutImageCache() *TemplateRegistry {
	tr.imageCache = nil
	return tr
}

// LoadFromFile loads templates from a YAML file
func (tr *TemplateRegistry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", filePath, err)
	}

	var templateFile TemplateFile
	if err := yaml.Unmarshal(data, &templateFile); err != nil {
		return fmt.Errorf("failed to unmarshal template YAML: %w", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	for i, def := range templateFile.Templates {
		if def.Name == "" {
			return fmt.Errorf("template %d: name cannot be empty", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("template %d (%s): path cannot be empty", i+1, def.Name)
		}

		template := cv.Template{
			Name:      def.Name,
			Path:      tr.resolve(def.Path),
			Threshold: def.Threshold,
		}
		if def.Region != nil {
			template = template.InRegion(coords.Rect{
				Left:   def.Region.Left,
				Top:    def.Region.Top,
				Width:  def.Region.Width,
				Height: def.Region.Height,
			})
		}
		if template.Threshold == 0 {
			template.Threshold = cv.DefaultThreshold
		}

		tr.templates[def.Name] = template

		if tr.imageCache != nil {
			if err := tr.imageCache.Register(template, def.Preload, def.UnloadAfter); err != nil {
				// Still loadable on demand
				tr.logger.Warn(err.Error())
			}
		}
	}

	return nil
}

// LoadFromDirectory loads all YAML files from a directory
func (tr *TemplateRegistry) LoadFromDirectory(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read template directory %s: %w", dirPath, err)
	}

	var loadErrors []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		if err := tr.LoadFromFile(filepath.Join(dirPath, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("file %s: %w", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d template files (first error): %w", len(loadErrors), loadErrors[0])
	}
	return nil
}

func (tr *TemplateRegistry) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(tr.basePath, path)
}

// Get retrieves a template by name
func (tr *TemplateRegistry) Get(name string) (cv.Template, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	template, ok := tr.templates[name]
	return template, ok
}

// GetOrDefault returns the named template, or <basePath>/<name>.png with the
// given threshold
func (tr *TemplateRegistry) GetOrDefault(name string, defaultThreshold float64) cv.Template {
	if template, ok := tr.Get(name); ok {
		return template
	}
	return cv.Template{
		Name:      name,
		Path:      filepath.Join(tr.basePath, name+".png"),
		Threshold: defaultThreshold,
	}
}

// Register adds a template to the registry programmatically
func (tr *TemplateRegistry) Register(template cv.Template) error {
	if template.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.templates[template.Name] = template
	if tr.imageCache != nil {
		return tr.imageCache.Register(template, false, false)
	}
	return nil
}

// Has checks if a template exists in the registry
func (tr *TemplateRegistry) Has(name string) bool {
	_, ok := tr.Get(name)
	return ok
}

// List returns all template names in the registry, sorted
func (tr *TemplateRegistry) List() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	names := make([]string, 0, len(tr.templates))
	for name := range tr.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove removes a template from the registry
func (tr *TemplateRegistry) Remove(name string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, ok := tr.templates[name]; !ok {
		return false
	}
	delete(tr.templates, name)
	if tr.imageCache != nil {
		tr.imageCache.Forget(name)
	}
	return true
}

// Image returns the decoded marker image for a registered template, loading
// it from disk on first use
func (tr *TemplateRegistry) Image(name string) (*image.RGBA, cv.Template, error) {
	template, ok := tr.Get(name)
	if !ok {
		return nil, cv.Template{}, fmt.Errorf("template '%s' not found in registry", name)
	}
	if tr.imageCache != nil {
		return tr.imageCache.Get(name)
	}
	img, err := cv.LoadImage(template.Path)
	if err != nil {
		return nil, cv.Template{}, fmt.Errorf("failed to load template %s: %w", name, err)
	}
	return img, template, nil
}

// ImageCache returns the image cache (if enabled)
func (tr *TemplateRegistry) ImageCache() *ImageCache {
	return tr.imageCache
}

// CacheStats returns image cache statistics
func (tr *TemplateRegistry) CacheStats() CacheStats {
	if tr.imageCache == nil {
		return CacheStats{}
	}
	return tr.imageCache.Stats()
}
