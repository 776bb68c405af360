package play

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPlayers lists audio players in order of preference
var DefaultPlayers = []string{"mpv", "ffplay", "vlc"}

// Player plays recordings with the first external player found
type Player struct {
	players  []string
	lookPath func(file string) (string, error)
	run      func(cmd *exec.Cmd) error
}

// New creates a player searching PATH for mpv, ffplay and vlc
func New() *Player {
	return &Player{
		players:  DefaultPlayers,
		lookPath: exec.LookPath,
		run:      func(cmd *exec.Cmd) error { return cmd.Run() },
	}
}

// Play plays a saved recording with the first available player
func (p *Player) Play(ctx context.Context, audioFile string) error {
	if _, err := os.Stat(audioFile); err != nil {
		return fmt.Errorf("audio file not found: %s", audioFile)
	}

	player, err := p.findAudioPlayer()
	if err != nil {
		return fmt.Errorf("no suitable audio player found: %w", err)
	}

	cmd := exec.CommandContext(ctx, player, playerArgs(player, audioFile)...)
	slog.Info("Playing recording", "file", audioFile, "player", player)

	if err := p.run(cmd); err != nil {
		return fmt.Errorf("playback failed with %s: %w", player, err)
	}

	slog.Debug("Playback completed", "file", audioFile)
	return nil
}

func playerArgs(player, audioFile string) []string {
	switch player {
	case "vlc":
		return []string{"--play-and-exit", audioFile}
	case "mpv":
		return []string{"--no-video", audioFile}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "error", audioFile}
	default:
		return []string{audioFile}
	}
}

func (p *Player) findAudioPlayer() (string, error) {
	for _, player := range p.players {
		if _, err := p.lookPath(player); err == nil {
			return player, nil
		}
	}
	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(p.players, ", "))
}

// Resolve finds the recording for name: an existing path is used as is,
// otherwise the output directory is searched for name with any extension.
func Resolve(outputDir, name string) (string, error) {
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return name, nil
	}

	matches, err := filepath.Glob(filepath.Join(outputDir, cleanFileName(name)+".*"))
	if err != nil {
		return "", fmt.Errorf("invalid recording name %q: %w", name, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no recording named %q in %s", name, outputDir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

func cleanFileName(name string) string {
	// Allows: letters, numbers, spaces, hyphens, underscores
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(result.String()), " ", "_")
}
