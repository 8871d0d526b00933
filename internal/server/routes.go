package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket progress stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - run control
	mux.HandleFunc("/api/runs", s.app.RunHandler.StartRunHandler)        // POST - start batch run
	mux.HandleFunc("/api/runs/current", s.app.RunHandler.StopRunHandler) // DELETE - stop active run
	mux.HandleFunc("/api/status", s.app.RunHandler.GetStatusHandler)     // GET - run status
	mux.HandleFunc("/api/files", s.app.FilesHandler.ListFilesHandler)    // GET - archive listing

	// Health
	mux.HandleFunc("/healthz", s.app.RunHandler.HealthHandler)

	return mux
}
