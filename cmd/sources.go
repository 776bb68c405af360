package cmd

import (
	"fmt"
	"runtime"

	"github.com/audiolibrelab/voicecapture/internal/audio"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available microphone sources",
	Long:  `List the capture sources offered by the configured backend (PipeWire or PulseAudio).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := audio.NewBackend(cfg)
		sources, err := backend.ListSources(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get %s sources: %w", backend.GetType(), err)
		}

		fmt.Printf("🎙 Microphone Sources (%s, %s)\n", runtime.GOOS, backend.GetType())
		fmt.Printf("═══════════════════════════════════════\n\n")
		for i, source := range sources {
			marker := ""
			if source.EchoCancel {
				marker = "  [echo-cancel]"
			}
			fmt.Printf("  %d. %s%s\n", i+1, source.Name, marker)
		}
		if len(sources) == 0 {
			fmt.Println("  (none found)")
		}

		fmt.Printf("\n💡 Usage:\n")
		fmt.Printf("  • Set capture.device to one of the names above to pin a microphone\n")
		fmt.Printf("  • Leave it empty to use the default source (echo-cancel when enabled)\n\n")
		return nil
	},
}
