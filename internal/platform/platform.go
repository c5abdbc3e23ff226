package platform

import (
	"fmt"

	"github.com/ZacxDev/video-overlay/internal/config"
	"golang.org/x/exp/slices"
)

// Preset defines a named overlay layout for a destination platform
type Preset interface {
	// GetName returns the preset identifier used on the command line
	GetName() string

	// GetDisplayName returns a human readable name
	GetDisplayName() string

	// Config returns a copy of the preset's overlay configuration
	Config() config.OverlayConfig
}

var presets = make(map[string]Preset)

// Register adds a preset to the registry
func Register(p Preset) {
	presets[p.GetName()] = p
}

// Get returns a preset by name
func Get(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unsupported preset: %s", name)
	}
	return p, nil
}

// GetSupportedPlatforms returns the registered preset names in sorted order
func GetSupportedPlatforms() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
