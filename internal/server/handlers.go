package server

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": s.cfg.OutputVersion,
		"service": "pulse",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := map[string]interface{}{
		"status":   "running",
		"database": s.db.Path(),
		"memory": map[string]interface{}{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"num_gc":         m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleMetadata returns the full security metadata map.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.metadata.GetAll()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read metadata")
		s.writeError(w, http.StatusInternalServerError, "failed to read metadata")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"securities": meta})
}

// handleMetadataBreakdown returns per-sector and per-country counts, the
// data behind composition pie charts.
func (s *Server) handleMetadataBreakdown(w http.ResponseWriter, r *http.Request) {
	meta, err := s.metadata.GetAll()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read metadata")
		s.writeError(w, http.StatusInternalServerError, "failed to read metadata")
		return
	}

	sectors := make(map[string]int)
	countries := make(map[string]int)
	for _, info := range meta {
		sectors[info.Sector]++
		countries[info.Country]++
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sectors":   sectors,
		"countries": countries,
		"total":     len(meta),
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
