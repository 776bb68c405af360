package play

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Morning_Notes.webm")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	got, err := Resolve(dir, "Morning Notes")
	require.NoError(t, err)
	assert.Equal(t, file, got)

	got, err = Resolve(dir, file)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	_, err = Resolve(dir, "missing")
	assert.Error(t, err)
}

func TestPlayUsesFirstAvailablePlayer(t *testing.T) {
	file := filepath.Join(t.TempDir(), "take.webm")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	var ran *exec.Cmd
	p := &Player{
		players: DefaultPlayers,
		lookPath: func(name string) (string, error) {
			if name == "ffplay" {
				return "/usr/bin/ffplay", nil
			}
			return "", exec.ErrNotFound
		},
		run: func(cmd *exec.Cmd) error {
			ran = cmd
			return nil
		},
	}

	require.NoError(t, p.Play(context.Background(), file))
	require.NotNil(t, ran)
	assert.Equal(t, []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "error", file}, ran.Args)
}

func TestPlayErrors(t *testing.T) {
	p := &Player{
		players:  DefaultPlayers,
		lookPath: func(string) (string, error) { return "", exec.ErrNotFound },
		run:      func(*exec.Cmd) error { return errors.New("unreachable") },
	}

	err := p.Play(context.Background(), filepath.Join(t.TempDir(), "none.webm"))
	assert.ErrorContains(t, err, "audio file not found")

	file := filepath.Join(t.TempDir(), "take.webm")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	err = p.Play(context.Background(), file)
	assert.ErrorContains(t, err, "no suitable audio player found")
}
