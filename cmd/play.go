package cmd

import (
	"fmt"

	"github.com/audiolibrelab/voicecapture/internal/play"
	"github.com/audiolibrelab/voicecapture/internal/service"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [name]",
	Short: "Play a saved recording",
	Long: `Play a recording from the output directory, or the most recent one
when no name is given. Uses mpv, ffplay or vlc, whichever is found first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var target string
		if len(args) == 1 {
			path, err := play.Resolve(cfg.Output.Directory, args[0])
			if err != nil {
				return err
			}
			target = path
		} else {
			files, err := service.New(cfg, nil).ListRecordings()
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no recordings in %s", cfg.Output.Directory)
			}
			target = files[0].Path
		}

		fmt.Printf("Playing: %s\n", target)
		if err := play.New().Play(cmd.Context(), target); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		return nil
	},
}
