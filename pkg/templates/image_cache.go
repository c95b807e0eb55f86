package templates

import (
	"fmt"
	"image"
	"sync"

	"jordanella.com/game-helper-go/internal/cv"
)

// CachedTemplate extends cv.Template with image caching capabilities
type CachedTemplate struct {
	cv.Template
	image       *image.RGBA
	mu          sync.RWMutex // Protects image field
	preload     bool
	unloadAfter bool
}

// ImageCache manages template image loading and caching
type ImageCache struct {
	templates map[string]*CachedTemplate
	mu        sync.RWMutex
	stats     CacheStats
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits        int64 // Cache hits
	Misses      int64 // Cache misses (had to load)
	Unloads     int64 // Total unload operations
	PreloadFail int64 // Failed preloads
}

// NewImageCache creates a new image cache
func NewImageCache() *ImageCache {
	return &ImageCache{
		templates: make(map[string]*CachedTemplate),
	}
}

// Register adds a template to the cache, loading it immediately when preload is set
func (ic *ImageCache) Register(template cv.Template, preload, unloadAfter bool) error {
	cached := &CachedTemplate{
		Template:    template,
		preload:     preload,
		unloadAfter: unloadAfter,
	}

	ic.mu.Lock()
	ic.templates[template.Name] = cached
	ic.mu.Unlock()

	if preload {
		if _, _, err := cached.getOrLoad(); err != nil {
			ic.mu.Lock()
			ic.stats.PreloadFail++
			ic.mu.Unlock()
			return fmt.Errorf("failed to preload template %s: %w", template.Name, err)
		}
	}
	return nil
}

// Get retrieves a template and its image, loading if necessary
func (ic *ImageCache) Get(name string) (*image.RGBA, cv.Template, error) {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return nil, cv.Template{}, fmt.Errorf("template '%s' not found in cache", name)
	}

	img, loaded, err := cached.getOrLoad()
	if err != nil {
		return nil, cv.Template{}, err
	}

	ic.mu.Lock()
	if loaded {
		ic.stats.Misses++
	} else {
		ic.stats.Hits++
	}
	ic.mu.Unlock()

	return img, cached.Template, nil
}

// Release unloads a template image if unloadAfter is set
func (ic *ImageCache) Release(name string) error {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template '%s' not found in cache", name)
	}

	if cached.unloadAfter && cached.unload() {
		ic.mu.Lock()
		ic.stats.Unloads++
		ic.mu.Unlock()
	}
	return nil
}

// Forget drops a template and its image from the cache
func (ic *ImageCache) Forget(name string) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	delete(ic.templates, name)
}

// UnloadAll unloads all cached images
func (ic *ImageCache) UnloadAll() {
	ic.mu.RLock()
	templates := make([]*CachedTemplate, 0, len(ic.templates))
	for _, t := range ic.templates {
		templates = append(templates, t)
	}
	ic.mu.RUnlock()

	for _, cached := range templates {
		if cached.unload() {
			ic.mu.Lock()
			ic.stats.Unloads++
			ic.mu.Unlock()
		}
	}
}

// Stats returns cache statistics
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

// getOrLoad returns the cached image, reporting whether it had to be loaded
func (ct *CachedTemplate) getOrLoad() (*image.RGBA, bool, error) {
	ct.mu.RLock()
	if ct.image != nil {
		defer ct.mu.RUnlock()
		return ct.image, false, nil
	}
	ct.mu.RUnlock()

	ct.mu.Lock()
	defer ct.mu.Unlock()

	// Double-check after acquiring write lock
	if ct.image != nil {
		return ct.image, false, nil
	}

	img, err := cv.LoadImage(ct.Path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load template %s: %w", ct.Name, err)
	}
	ct.image = img
	return img, true, nil
}

// unload releases the template image, reporting whether one was held
func (ct *CachedTemplate) unload() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	held := ct.image != nil
	ct.image = nil
	return held
}

// IsLoaded returns true if the image is currently in memory
func (ct *CachedTemplate) IsLoaded() bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.image != nil
}
