package platform

import (
	"github.com/ZacxDev/video-overlay/internal/config"
	"github.com/ZacxDev/video-overlay/pkg/types"
)

type YouTube struct{}

func init() {
	Register(&YouTube{})
}

func (p *YouTube) GetName() string {
	return string(types.PresetYouTube)
}

func (p *YouTube) GetDisplayName() string {
	return "YouTube"
}

func (p *YouTube) Config() config.OverlayConfig {
	return config.OverlayConfig{
		Title: config.LineStyle{
			OffsetX:  150,
			OffsetY:  250, // from bottom
			FontSize: 70,
			Weight:   config.WeightBold,
		},
		Artist: config.LineStyle{
			OffsetX:  150,
			OffsetY:  200, // below the title
			FontSize: 45,
			Weight:   config.WeightNormal,
		},
		TextColor:            "white",
		OutlineColor:         "black",
		OutlineWidth:         3,
		OverlayWindowSeconds: config.DefaultOverlayWindowSeconds,
	}
}
