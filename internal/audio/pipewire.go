package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// PipeWire enumerates PipeWire capture ports
type PipeWire struct{}

// NewPipeWire creates a new PipeWire instance
func NewPipeWire() *PipeWire {
	return &PipeWire{}
}

// ListPorts returns all output ports of the PipeWire graph
func (pw *PipeWire) ListPorts(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "pw-link", "-o")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, classifyCommandError("pw-link", err, string(output))
	}

	return parsePorts(string(output)), nil
}

// ListSources returns the capture nodes, one entry per node
func (pw *PipeWire) ListSources(ctx context.Context) ([]Source, error) {
	ports, err := pw.ListPorts(ctx)
	if err != nil {
		return nil, err
	}

	sources := captureNodes(ports)
	slog.Debug("PipeWire capture sources", "ports", len(ports), "sources", len(sources))
	return sources, nil
}

func parsePorts(output string) []string {
	var ports []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "Input ports:") && !strings.HasPrefix(line, "Output ports:") {
			ports = append(ports, line)
		}
	}
	return ports
}

// captureNodes keeps microphone nodes and drops playback monitors
func captureNodes(ports []string) []Source {
	seen := make(map[string]bool)
	var sources []Source

	for _, port := range ports {
		lastColon := strings.LastIndex(port, ":")
		if lastColon <= 0 {
			continue
		}
		node := port[:lastColon]
		portName := strings.ToLower(port[lastColon+1:])

		if strings.HasPrefix(portName, "monitor_") {
			continue
		}
		isEchoCancel := strings.Contains(strings.ToLower(node), "echo-cancel")
		if !strings.HasPrefix(portName, "capture") && !isEchoCancel {
			continue
		}
		if seen[node] {
			continue
		}
		seen[node] = true
		sources = append(sources, Source{Name: node, EchoCancel: isEchoCancel})
	}

	return sources
}

// classifyCommandError maps tool failures onto the capture error taxonomy
func classifyCommandError(tool string, err error, output string) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "access denied"),
		strings.Contains(lower, "not authorized"):
		return fmt.Errorf("%w: %s: %s", ErrPermissionDenied, tool, strings.TrimSpace(output))
	case strings.Contains(lower, "no such device"),
		strings.Contains(lower, "no such entity"):
		return fmt.Errorf("%w: %s: %s", ErrNoDevice, tool, strings.TrimSpace(output))
	}

	if err == nil {
		return fmt.Errorf("%s failed: %s", tool, strings.TrimSpace(output))
	}
	if output = strings.TrimSpace(output); output != "" {
		return fmt.Errorf("%s failed: %w (output: %s)", tool, err, output)
	}
	return fmt.Errorf("%s failed: %w", tool, err)
}
