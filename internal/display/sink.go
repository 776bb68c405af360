package display

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
)

// DefaultSurfaceID is the surface id used when none is configured. RoleAttr
// is the attribute consulted when no surface carries the id.
const (
	DefaultSurfaceID = "recording-duration"
	RoleAttr         = "data-role"
)

var durationPattern = regexp.MustCompile(`^\d{2,}:\d{2}$`)

// Sink shows the duration on Board surfaces. Surfaces are looked up on
// every call: by id, then by role attribute, then by any surface already
// showing a duration. Every surface found at the first matching level is
// updated, so several clients bound to the same id all follow along. A
// missing surface is not an error.
type Sink struct {
	board  *Board
	id     string
	logger *slog.Logger
}

// NewSink creates a sink for the surface id, DefaultSurfaceID when empty
func NewSink(board *Board, id string, logger *slog.Logger) *Sink {
	if id == "" {
		id = DefaultSurfaceID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{board: board, id: id, logger: logger}
}

func (s *Sink) lookup() []*Surface {
	if found := s.board.ByID(s.id); len(found) > 0 {
		return found
	}
	if found := s.board.ByAttr(RoleAttr, s.id); len(found) > 0 {
		return found
	}
	return s.board.ByText(durationPattern.MatchString)
}

// Show writes text to the matched surfaces
func (s *Sink) Show(text string) {
	surfaces := s.lookup()
	if len(surfaces) == 0 {
		s.logger.Debug("No duration surface found", "id", s.id, "text", text)
		return
	}
	for _, surface := range surfaces {
		if err := surface.set(text); err != nil {
			s.logger.Debug("Failed to update duration surface", "id", surface.ID, "error", err)
		}
	}
}

// TerminalSink redraws a single status line
type TerminalSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminalSink creates a sink redrawing on w
func NewTerminalSink(w io.Writer) *TerminalSink {
	return &TerminalSink{w: w}
}

// Show redraws the status line with text
func (t *TerminalSink) Show(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "\r● REC %s", text)
}

// Multi fans text out to several sinks
type Multi []interface{ Show(text string) }

// Show forwards text to every non-nil sink
func (m Multi) Show(text string) {
	for _, sink := range m {
		if sink != nil {
			sink.Show(text)
		}
	}
}
