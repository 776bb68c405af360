package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/audiolibrelab/voicecapture/internal/capture"
	"github.com/audiolibrelab/voicecapture/internal/display"
	"github.com/audiolibrelab/voicecapture/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the recorder capability over HTTP
type Server struct {
	service service.Service
	board   *display.Board
	port    string
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	Success     bool           `json:"success"`
	IsRecording bool           `json:"is_recording"`
	Status      service.Status `json:"status"`
	Surfaces    int            `json:"surfaces"`
}

// GenericResponse represents a generic API response
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New creates a server for svc. board receives the websocket display
// surfaces and should be the board behind the service's display sink.
func New(svc service.Service, board *display.Board, port string) *Server {
	return &Server{
		service: svc,
		board:   board,
		port:    port,
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/recorder/start", s.handleStart)
	mux.HandleFunc("/api/recorder/stop", s.handleStop)
	mux.HandleFunc("/api/recorder/stop-sync", s.handleStopSync)
	mux.HandleFunc("/api/recorder/cancel", s.handleCancel)
	mux.HandleFunc("/api/recorder/last-recording", s.handleLastRecording)
	mux.HandleFunc("/api/recorder/last-error", s.handleLastError)
	mux.HandleFunc("/api/recorder/status", s.handleStatus)
	mux.HandleFunc("/api/recordings", s.handleRecordings)
	mux.HandleFunc("/api/sources", s.handleSources)
	mux.HandleFunc("/ws/duration", s.handleDurationSocket)
	return mux
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	localIP := getLocalIP()
	slog.Info("Starting VoiceCapture Web Server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down web server")
	s.service.Cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

// handleIndex serves the built-in recorder page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(indexHTML))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if !s.service.Start(r.Context()) {
		writeJSON(w, http.StatusOK, GenericResponse{
			Success: false,
			Message: "Recording did not start, see /api/recorder/last-error",
		})
		return
	}
	writeJSON(w, http.StatusOK, GenericResponse{Success: true, Message: "Recording started"})
}

// handleStop waits for the finalized recording and returns its payload
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	result, err := s.service.Stop(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, capture.ErrNoActiveRecording):
			status = http.StatusConflict
		case errors.Is(err, capture.ErrCancelled):
			status = http.StatusGone
		}
		s.sendErrorResponse(w, status, err.Error(), "operation", "stop")
		return
	}
	s.writePayload(w, result)
}

func (s *Server) handleStopSync(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if !s.service.StopSync() {
		writeJSON(w, http.StatusOK, GenericResponse{Success: false, Message: "No active recording"})
		return
	}
	writeJSON(w, http.StatusOK, GenericResponse{Success: true, Message: "Finalizing recording"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	s.service.Cancel()
	writeJSON(w, http.StatusOK, GenericResponse{Success: true, Message: "Recording cancelled"})
}

func (s *Server) handleLastRecording(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	result, ok := s.service.GetLastRecording()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writePayload(w, result)
}

func (s *Server) handleLastError(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	msg, ok := s.service.GetLastError()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, GenericResponse{Success: true, Error: msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Success:     true,
		IsRecording: s.service.IsRecording(),
		Status:      s.service.Status(),
		Surfaces:    s.board.Len(),
	})
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	files, err := s.service.ListRecordings()
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError, err.Error(), "operation", "list_recordings")
		return
	}
	if files == nil {
		files = []service.RecordingFile{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "recordings": files})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	sources, err := s.service.ListSources(r.Context())
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list sources: %v", err), "operation", "list_sources")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "sources": sources})
}

func (s *Server) writePayload(w http.ResponseWriter, result capture.RecordingResult) {
	payload, err := result.Payload()
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError, err.Error(), "operation", "payload")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(payload))
}

// allowMethod rejects requests with any other method
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"success": false,
		"error":   "Method not allowed",
	})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write JSON response", "error", err)
	}
}

// sendErrorResponse logs the error and sends a JSON error response to the client
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...interface{}) {
	logFields := []interface{}{"error_message", errorMsg, "status_code", statusCode}
	if len(logContext) > 0 {
		logFields = append(logFields, logContext...)
	}
	slog.Error("Sending error response to client", logFields...)

	writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   errorMsg,
	})
}

func getLocalIP() string {
	// Connecting a UDP socket sends nothing but resolves the outbound interface
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
