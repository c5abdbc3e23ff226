package platform

import (
	"testing"

	"github.com/ZacxDev/video-overlay/internal/config"
)

func TestSupportedPlatformsSorted(t *testing.T) {
	got := GetSupportedPlatforms()
	want := []string{"custom", "xcom", "youtube"}
	if len(got) != len(want) {
		t.Fatalf("platforms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("platforms = %v, want %v", got, want)
		}
	}
}

func TestGetUnknownPreset(t *testing.T) {
	if _, err := Get("tiktok"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestPresetsAreValidAndImmutable(t *testing.T) {
	for _, name := range GetSupportedPlatforms() {
		p, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		cfg := p.Config()
		if err := config.Validate(cfg); err != nil {
			t.Fatalf("preset %s invalid: %v", name, err)
		}

		cfg.Title.OffsetY = 9999
		if p.Config().Title.OffsetY == 9999 {
			t.Fatalf("preset %s was mutated through its returned config", name)
		}
	}
}

func TestXComGeometry(t *testing.T) {
	p, err := Get("xcom")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	cfg := p.Config()
	if cfg.Title.OffsetX != 110 || cfg.Title.OffsetY != 220 || cfg.Title.FontSize != 60 {
		t.Fatalf("unexpected title geometry: %+v", cfg.Title)
	}
	if cfg.Artist.OffsetY != 180 || cfg.Artist.FontSize != 38 {
		t.Fatalf("unexpected artist geometry: %+v", cfg.Artist)
	}
	if !cfg.Title.IsBold() || cfg.Artist.IsBold() {
		t.Fatal("title should be bold and artist normal")
	}
}

func TestCustomStartsFromDefaults(t *testing.T) {
	if !IsCustom("custom") || IsCustom("youtube") {
		t.Fatal("IsCustom mismatch")
	}
	p, _ := Get("custom")
	if p.Config() != config.Default() {
		t.Fatalf("custom preset should start from defaults: %+v", p.Config())
	}
}
