package cmd

import (
	"fmt"
	"strings"

	"github.com/audiolibrelab/voicecapture/internal/play"

	"github.com/spf13/cobra"
)

// runPipeline executes every step of steps for name
func runPipeline(cmd *cobra.Command, name, steps string, opts recordOptions) error {
	var recorded string
	for i, step := range strings.ToLower(steps) {
		fmt.Printf("Pipeline: executing step %d/%d: '%c'...\n", i+1, len(steps), step)
		path, err := runStep(cmd, step, name, recorded, opts)
		if err != nil {
			return err
		}
		if path != "" {
			recorded = path
		}
	}
	return nil
}

// executePipeline continues the pipeline after startStep has already run
func executePipeline(cmd *cobra.Command, name, recorded string, startStep rune) error {
	if pipeline == "" {
		return nil
	}

	steps := []rune(strings.ToLower(pipeline))
	startIndex := -1
	for i, step := range steps {
		if step == startStep {
			startIndex = i
			break
		}
	}
	if startIndex == -1 {
		return fmt.Errorf("step '%c' not found in pipeline '%s'", startStep, pipeline)
	}

	opts := recordOptionsFromFlags(cmd)
	for i := startIndex + 1; i < len(steps); i++ {
		fmt.Printf("Pipeline: executing step '%c'...\n", steps[i])
		path, err := runStep(cmd, steps[i], name, recorded, opts)
		if err != nil {
			return err
		}
		if path != "" {
			recorded = path
		}
	}
	return nil
}

func runStep(cmd *cobra.Command, step rune, name, recorded string, opts recordOptions) (string, error) {
	switch step {
	case 'r':
		path, err := recordOnce(cmd.Context(), name, opts)
		if err != nil {
			return "", fmt.Errorf("pipeline record failed: %w", err)
		}
		fmt.Println("Pipeline: recording completed")
		return path, nil

	case 'p':
		target := recorded
		if target == "" {
			var err error
			if target, err = play.Resolve(cfg.Output.Directory, name); err != nil {
				return "", fmt.Errorf("pipeline play failed: %w", err)
			}
		}
		if err := play.New().Play(cmd.Context(), target); err != nil {
			return "", fmt.Errorf("pipeline play failed: %w", err)
		}
		fmt.Println("Pipeline: playback completed")
		return "", nil

	default:
		return "", fmt.Errorf("unknown pipeline step: '%c' (valid: r=record, p=play)", step)
	}
}

// validatePipeline checks the steps before anything runs. record continues
// the pipeline after its own 'r' step, so its pipeline must contain one.
func validatePipeline(steps, command string) error {
	if steps == "" {
		return nil
	}

	validSteps := map[rune]bool{
		'r': true, // record
		'p': true, // play
	}

	for _, step := range strings.ToLower(steps) {
		if !validSteps[step] {
			return fmt.Errorf("invalid pipeline step: '%c' (valid: r=record, p=play)", step)
		}
	}

	if command == "record" && !strings.ContainsRune(strings.ToLower(steps), 'r') {
		return fmt.Errorf("pipeline '%s' has no 'r' step for record to continue from (e.g. 'rp')", steps)
	}
	return nil
}
