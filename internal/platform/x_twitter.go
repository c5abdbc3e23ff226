package platform

import (
	"github.com/ZacxDev/video-overlay/internal/config"
	"github.com/ZacxDev/video-overlay/pkg/types"
)

type Twitter struct{}

func init() {
	Register(&Twitter{})
}

func (p *Twitter) GetName() string {
	return string(types.PresetXCom)
}

func (p *Twitter) GetDisplayName() string {
	return "X.com (Twitter)"
}

// Sits lower than YouTube to clear the X.com player controls
func (p *Twitter) Config() config.OverlayConfig {
	return config.OverlayConfig{
		Title: config.LineStyle{
			OffsetX:  110,
			OffsetY:  220,
			FontSize: 60,
			Weight:   config.WeightBold,
		},
		Artist: config.LineStyle{
			OffsetX:  110,
			OffsetY:  180,
			FontSize: 38,
			Weight:   config.WeightNormal,
		},
		TextColor:            "white",
		OutlineColor:         "black",
		OutlineWidth:         3,
		OverlayWindowSeconds: config.DefaultOverlayWindowSeconds,
	}
}
