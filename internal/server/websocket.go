package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	helloTimeout = 5 * time.Second
	writeTimeout = 5 * time.Second
	sendBuffer   = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// surfaceHello is the first message a display client sends. All fields are
// optional; an empty hello registers an anonymous surface.
type surfaceHello struct {
	ID    string            `json:"id"`
	Attrs map[string]string `json:"attrs"`
	Text  string            `json:"text"`
}

type durationMessage struct {
	Duration string `json:"duration"`
}

// handleDurationSocket turns each websocket client into a display surface
func (s *Server) handleDurationSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var hello surfaceHello
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	if err := conn.ReadJSON(&hello); err != nil {
		slog.Debug("Display client sent no hello", "error", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	send := make(chan string, sendBuffer)
	surface := s.board.Register(hello.ID, hello.Attrs, hello.Text, func(text string) error {
		select {
		case send <- text:
		default:
			slog.Debug("Display client is slow, dropping update", "text", text)
		}
		return nil
	})
	defer s.board.Remove(surface)
	slog.Debug("Display surface connected", "id", hello.ID, "attrs", hello.Attrs, "remote", r.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			slog.Debug("Display surface disconnected", "id", hello.ID)
			return
		case <-r.Context().Done():
			return
		case text := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(durationMessage{Duration: text}); err != nil {
				slog.Debug("Failed to push duration", "id", hello.ID, "error", err)
				return
			}
		}
	}
}
