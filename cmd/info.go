package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/audiolibrelab/voicecapture/internal/config"
	"github.com/audiolibrelab/voicecapture/internal/service"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show resolved configuration and the output path for a recording",
	Long:  `Display the resolved configuration with inheritance indicators and the file path a recording with the given name would be saved to. Shows which values are inherited from default vs profile-specific.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			mimeType := cfg.Capture.Encodings[0]
			fmt.Printf("=== FILE PATHS ===\n")
			fmt.Printf("output: %s\n", filepath.Join(cfg.Output.Directory,
				service.CleanFileName(args[0])+"."+service.ExtensionForMimeType(mimeType)))
			fmt.Printf("clean_name: %s\n\n", service.CleanFileName(args[0]))
		}

		fmt.Printf("=== RESOLVED CONFIGURATION ===\n")
		values := resolvedValues(cfg)
		section := ""
		for _, key := range config.InheritanceKeys() {
			group, field, _ := strings.Cut(key, ".")
			if group != section {
				section = group
				fmt.Printf("\n[%s]\n", strings.ToUpper(group[:1])+group[1:])
			}
			fmt.Printf("%s: %s %s\n", field, values[key], getInheritanceIndicator(cfg.Inheritance[key]))
		}
		return nil
	},
}

func resolvedValues(c *config.Config) map[string]string {
	return map[string]string{
		"audio.backend":             c.Audio.Backend,
		"audio.ffmpeg_path":         c.Audio.FFmpegPath,
		"capture.device":            c.Capture.Device,
		"capture.sample_rate":       fmt.Sprint(c.Capture.SampleRate),
		"capture.echo_cancellation": fmt.Sprint(c.EchoCancellation()),
		"capture.noise_suppression": fmt.Sprint(c.NoiseSuppression()),
		"capture.encodings":         strings.Join(c.Capture.Encodings, ", "),
		"capture.timeslice_ms":      fmt.Sprint(c.Capture.TimesliceMs),
		"display.surface_id":        c.Display.SurfaceID,
		"display.tick_interval_ms":  fmt.Sprint(c.Display.TickIntervalMs),
		"display.settle_delay_ms":   fmt.Sprint(c.Display.SettleDelayMs),
		"output.directory":          c.Output.Directory,
		"server.port":               c.Server.Port,
	}
}

// getInheritanceIndicator returns a formatted indicator for inheritance status
func getInheritanceIndicator(status string) string {
	switch status {
	case "inherited":
		return "[inherited]"
	case "profile-specific":
		return "[profile-specific]"
	default:
		return "[default]"
	}
}
