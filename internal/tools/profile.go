package tools

import (
	"fmt"

	"jordanella.com/game-helper-go/internal/actions"
)

// Profile is the persisted form of a tool. Exactly one settings block is
// set, matching Kind.
type Profile struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	ImageClicker     *ImageClickerSettings     `yaml:"image_clicker,omitempty"`
	CollectionFiller *CollectionFillerSettings `yaml:"collection_filler,omitempty"`
	Macro            *actions.Settings         `yaml:"macro,omitempty"`
}

// Validate checks that the profile carries the settings its kind needs
func (p Profile) Validate() error {
	if _, err := ParseKind(string(p.Kind)); err != nil {
		return err
	}
	if p.Name == "" {
		return fmt.Errorf("profile %s has no name", p.ID)
	}
	return nil
}

// DefaultProfile returns a fresh profile of kind with default settings
func DefaultProfile(kind Kind, name string) Profile {
	p := Profile{Name: name, Kind: kind}
	switch kind {
	case KindImageClicker:
		p.ImageClicker = &ImageClickerSettings{}
	case KindCollectionFiller:
		p.CollectionFiller = &CollectionFillerSettings{}
	case KindCustomMacro:
		s := DefaultCustomMacro(name)
		p.Macro = &s
	case KindOcrMacro:
		s := DefaultOcrMacro(name)
		p.Macro = &s
	}
	return p
}

// DefaultProfiles returns one profile per kind
func DefaultProfiles() []Profile {
	profiles := make([]Profile, 0, len(Kinds))
	for _, k := range Kinds {
		profiles = append(profiles, DefaultProfile(k, k.Label()))
	}
	return profiles
}
