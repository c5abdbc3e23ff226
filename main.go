package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/ZacxDev/video-overlay/pkg/types"
	"github.com/ZacxDev/video-overlay/pkg/videoprocessor"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	rootCmd = &cobra.Command{
		Use:   "video-overlay",
		Short: "Burn a song title and artist into a video",
		Long: `video-overlay is a command-line tool that draws a song title and artist name
onto a video during its first and last seconds, positioned for a target platform.

Examples:
  # Overlay a title and artist using the YouTube layout
  video-overlay render -i input.mp4 -o ./output --title "Song" --artist "Artist"

  # Use the X layout
  video-overlay render -i input.mp4 -p xcom --title "Song"

  # Tweak the custom layout, starting from the X geometry
  video-overlay render -i input.mp4 -p custom --base xcom --title "Song" --title-size 90 --window 6`,
		SilenceUsage: true,
	}

	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render the overlay onto a video file",
		Long: fmt.Sprintf(`Render a title and artist overlay onto a video file. The video is re-encoded
losslessly, so the output may be larger than the input.

Supported presets:
%s
Example:
  video-overlay render -i input.mp4 -o ./output -p youtube --title "Song" --artist "Artist"`,
			formatSupportedPresets()),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := overlayOptions(cmd)
			if err != nil {
				return err
			}
			if opts.InputPath == "" {
				return fmt.Errorf("input path is required")
			}

			progress := newProgressReporter(opts.InputPath)
			opts.OnProgress = progress.update

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			path, err := videoprocessor.AddTextOverlay(ctx, opts)
			progress.finish()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}

	filterCmd = &cobra.Command{
		Use:   "filter",
		Short: "Print the filter expression for a title and artist",
		Long: `Print the ffmpeg filter expression that render would use, without touching
any video. With --height, also print where each line lands on a frame of that height.

Example:
  video-overlay filter -p xcom --title "Song" --artist "Artist" --height 720`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := overlayOptions(cmd)
			if err != nil {
				return err
			}
			expr, err := videoprocessor.CompileFilter(opts)
			if err != nil {
				return err
			}
			fmt.Println(expr)

			height, _ := cmd.Flags().GetInt("height")
			if height <= 0 {
				return nil
			}
			lines, err := videoprocessor.Layout(opts, height)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Printf("%-6s x=%gpx bottom=%gpx size=%gpx outline=%dpx %q\n",
					l.Line, l.X, l.Bottom, l.FontSize, l.Outline, l.Text)
			}
			return nil
		},
	}

	presetsCmd = &cobra.Command{
		Use:   "presets",
		Short: "List the overlay presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range videoprocessor.GetSupportedPresets() {
				cfg, display, err := videoprocessor.PresetConfig(name)
				if err != nil {
					return err
				}
				fmt.Printf("%s (%s)\n", name, display)
				fmt.Printf("  title   x=%g y=%g size=%g %s\n", cfg.Title.OffsetX, cfg.Title.OffsetY, cfg.Title.FontSize, cfg.Title.Weight)
				fmt.Printf("  artist  x=%g y=%g size=%g %s\n", cfg.Artist.OffsetX, cfg.Artist.OffsetY, cfg.Artist.FontSize, cfg.Artist.Weight)
				fmt.Printf("  colors  %s on %s, outline %g, window %gs\n", cfg.TextColor, cfg.OutlineColor, cfg.OutlineWidth, cfg.OverlayWindowSeconds)
			}
			return nil
		},
	}
)

func formatSupportedPresets() string {
	var sb strings.Builder
	for _, preset := range videoprocessor.GetSupportedPresets() {
		sb.WriteString(fmt.Sprintf("- %s\n", preset))
	}
	return sb.String()
}

// overlayOptions reads the flags shared by render and filter. Custom layout
// flags are only applied when given, so unset flags keep preset values.
func overlayOptions(cmd *cobra.Command) (*videoprocessor.VideoOverlayOptions, error) {
	flags := cmd.Flags()
	opts := &videoprocessor.VideoOverlayOptions{}

	opts.Preset, _ = flags.GetString("preset")
	opts.Title, _ = flags.GetString("title")
	opts.Artist, _ = flags.GetString("artist")
	opts.ConfigPath, _ = flags.GetString("config")
	opts.Base, _ = flags.GetString("base")

	var err error
	c := &opts.Custom
	for _, f := range []struct {
		name string
		dst  **float64
	}{
		{"title-x", &c.Title.OffsetX},
		{"title-y", &c.Title.OffsetY},
		{"title-size", &c.Title.FontSize},
		{"artist-x", &c.Artist.OffsetX},
		{"artist-y", &c.Artist.OffsetY},
		{"artist-size", &c.Artist.FontSize},
		{"outline-width", &c.OutlineWidth},
		{"window", &c.OverlayWindowSeconds},
	} {
		if *f.dst, err = changedFloat(flags, f.name); err != nil {
			return nil, err
		}
	}
	c.Title.Weight = changedString(flags, "title-weight")
	c.Artist.Weight = changedString(flags, "artist-weight")
	c.TextColor = changedString(flags, "text-color")
	c.OutlineColor = changedString(flags, "outline-color")

	if cmd.Name() == "render" {
		opts.InputPath, _ = flags.GetString("input")
		opts.OutputDir, _ = flags.GetString("output")
		opts.FFmpeg, _ = flags.GetString("ffmpeg")
		opts.FFmpegFallbacks, _ = flags.GetStringSlice("ffmpeg-fallback")
		opts.WorkDir, _ = flags.GetString("work-dir")
		opts.SingleThread, _ = flags.GetBool("single-thread")
		opts.Open, _ = flags.GetBool("open")
		opts.Verbose, _ = flags.GetBool("verbose")
		opts.LogFormat, _ = flags.GetString("log-format")
	}
	return opts, nil
}

func changedFloat(flags *pflag.FlagSet, name string) (*float64, error) {
	if !flags.Changed(name) {
		return nil, nil
	}
	v, err := flags.GetFloat64(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedString(flags *pflag.FlagSet, name string) *string {
	if !flags.Changed(name) {
		return nil
	}
	v, _ := flags.GetString(name)
	return &v
}

// progressReporter draws a bar on terminals and logs stage changes otherwise
type progressReporter struct {
	bar   *progressbar.ProgressBar
	stage string
}

func newProgressReporter(input string) *progressReporter {
	fd := os.Stderr.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return &progressReporter{}
	}
	description := "Rendering"
	if info, err := os.Stat(input); err == nil {
		description = fmt.Sprintf("Rendering %s", humanize.Bytes(uint64(info.Size())))
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
	return &progressReporter{bar: bar}
}

func (r *progressReporter) update(p types.Progress) {
	if r.bar == nil {
		if p.Stage != r.stage {
			r.stage = p.Stage
			msg := p.Status
			if p.Error != "" {
				msg = p.Error
			}
			log.Printf("[%3d%%] %s %s", p.Percent, p.Stage, msg)
		}
		return
	}
	if p.Status != "" {
		r.bar.Describe(p.Status)
	}
	_ = r.bar.Set(p.Percent)
}

func (r *progressReporter) finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

func init() {
	for _, cmd := range []*cobra.Command{renderCmd, filterCmd} {
		flags := cmd.Flags()
		flags.StringP("preset", "p", "", fmt.Sprintf("Overlay preset (%s), default youtube", strings.Join(videoprocessor.GetSupportedPresets(), ", ")))
		flags.String("title", "", "Song title")
		flags.String("artist", "", "Artist name")
		flags.String("config", "", "TOML configuration file")
		flags.String("base", "", "Custom preset: named preset to start from (default youtube)")

		flags.Float64("title-x", 0, "Custom preset: title offset from the left edge")
		flags.Float64("title-y", 0, "Custom preset: title offset from the bottom edge")
		flags.Float64("title-size", 0, "Custom preset: title font size")
		flags.String("title-weight", "", "Custom preset: title weight (normal or bold)")
		flags.Float64("artist-x", 0, "Custom preset: artist offset from the left edge")
		flags.Float64("artist-y", 0, "Custom preset: artist offset from the bottom edge")
		flags.Float64("artist-size", 0, "Custom preset: artist font size")
		flags.String("artist-weight", "", "Custom preset: artist weight (normal or bold)")
		flags.String("text-color", "", "Custom preset: text color")
		flags.String("outline-color", "", "Custom preset: outline color")
		flags.Float64("outline-width", 0, "Custom preset: outline width in pixels")
		flags.Float64("window", 0, "Custom preset: seconds shown at the start and end")
	}

	renderCmd.Flags().StringP("input", "i", "", "Input video file")
	renderCmd.Flags().StringP("output", "o", "", "Output directory (default: current directory)")
	renderCmd.Flags().String("ffmpeg", "", "ffmpeg binary to use (default: ffmpeg on PATH)")
	renderCmd.Flags().StringSlice("ffmpeg-fallback", nil, "ffmpeg binaries to try if the primary fails")
	renderCmd.Flags().String("work-dir", "", "Working directory for the engine (default: temporary)")
	renderCmd.Flags().Bool("single-thread", false, "Run ffmpeg with a single worker thread")
	renderCmd.Flags().Bool("open", false, "Open the output when done")
	renderCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	renderCmd.Flags().String("log-format", "console", "Log format (console or json)")

	renderCmd.MarkFlagRequired("input")

	filterCmd.Flags().Int("height", 0, "Also print pixel positions for this frame height")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(presetsCmd)
}

func main() {
	log.SetFlags(log.LstdFlags)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
