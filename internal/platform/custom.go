package platform

import (
	"github.com/ZacxDev/video-overlay/internal/config"
	"github.com/ZacxDev/video-overlay/pkg/types"
)

// Custom is the user-editable preset. Its registered value is only the
// starting point; edits are applied to the copy returned by Config.
type Custom struct{}

func init() {
	Register(&Custom{})
}

func (p *Custom) GetName() string {
	return string(types.PresetCustom)
}

func (p *Custom) GetDisplayName() string {
	return "Custom"
}

func (p *Custom) Config() config.OverlayConfig {
	return config.Default()
}

// IsCustom reports whether name selects the user-editable preset
func IsCustom(name string) bool {
	return name == string(types.PresetCustom)
}
