package display

import (
	"sync"
)

// Surface is one place the duration can be shown: a browser element bound
// over a websocket, a terminal line or anything that accepts text.
type Surface struct {
	ID    string
	Attrs map[string]string

	board *Board
	text  string
	write func(text string) error
}

// Text returns what the surface currently shows
func (s *Surface) Text() string {
	s.board.mu.RLock()
	defer s.board.mu.RUnlock()
	return s.text
}

func (s *Surface) set(text string) error {
	s.board.mu.Lock()
	s.text = text
	s.board.mu.Unlock()

	if s.write == nil {
		return nil
	}
	return s.write(text)
}

// Board is the registry of live surfaces
type Board struct {
	mu       sync.RWMutex
	surfaces []*Surface
}

// NewBoard creates an empty board
func NewBoard() *Board {
	return &Board{}
}

// Register adds a surface. write is called with every text shown on it.
func (b *Board) Register(id string, attrs map[string]string, text string, write func(text string) error) *Surface {
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	s := &Surface{ID: id, Attrs: copied, board: b, text: text, write: write}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.surfaces = append(b.surfaces, s)
	return s
}

// Remove drops a surface; unknown surfaces are ignored
func (b *Board) Remove(s *Surface) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, candidate := range b.surfaces {
		if candidate == s {
			b.surfaces = append(b.surfaces[:i], b.surfaces[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered surfaces
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.surfaces)
}

// ByID returns the surfaces registered under id
func (b *Board) ByID(id string) []*Surface {
	return b.all(func(s *Surface) bool { return id != "" && s.ID == id })
}

// ByAttr returns the surfaces carrying key=value
func (b *Board) ByAttr(key, value string) []*Surface {
	return b.all(func(s *Surface) bool {
		v, ok := s.Attrs[key]
		return ok && v == value
	})
}

// ByText returns the surfaces whose current text satisfies match
func (b *Board) ByText(match func(text string) bool) []*Surface {
	return b.all(func(s *Surface) bool { return match(s.text) })
}

func (b *Board) all(match func(s *Surface) bool) []*Surface {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var found []*Surface
	for _, s := range b.surfaces {
		if match(s) {
			found = append(found, s)
		}
	}
	return found
}
