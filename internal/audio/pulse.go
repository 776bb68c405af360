package audio

import (
	"context"
	"os/exec"
	"strings"
)

// Pulse enumerates PulseAudio (or pipewire-pulse) sources
type Pulse struct{}

// ListSources returns capture sources, skipping sink monitors
func (p *Pulse) ListSources(ctx context.Context) ([]Source, error) {
	cmd := exec.CommandContext(ctx, "pactl", "list", "short", "sources")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, classifyCommandError("pactl", err, string(output))
	}
	return parsePactlSources(string(output)), nil
}

// parsePactlSources reads "index\tname\tdriver\tformat\tstate" lines
func parsePactlSources(output string) []Source {
	var sources []Source
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := fields[1]
		if strings.HasSuffix(name, ".monitor") {
			continue
		}
		sources = append(sources, Source{
			Name:       name,
			EchoCancel: strings.Contains(strings.ToLower(name), "echo-cancel"),
		})
	}
	return sources
}
