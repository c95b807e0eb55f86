package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"jordanella.com/game-helper-go/internal/tools"
)

// ProfilesFile is the layout of profiles.yaml
type ProfilesFile struct {
	Profiles []tools.Profile `yaml:"profiles"`
}

// LoadProfiles reads tool profiles. A missing file yields no profiles, which
// the tool manager fills with defaults.
func LoadProfiles(path string) ([]tools.Profile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file %s: %w", path, err)
	}

	var file ProfilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profiles YAML: %w", err)
	}
	for i, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %d: %w", i+1, err)
		}
	}
	return file.Profiles, nil
}

// SaveProfiles writes tool profiles atomically
func SaveProfiles(path string, profiles []tools.Profile) error {
	data, err := yaml.Marshal(ProfilesFile{Profiles: profiles})
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".profiles-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace profiles file: %w", err)
	}
	return nil
}
