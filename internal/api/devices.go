package api

import "net/http"

// handleListDevices returns the archived association table entries, most
// recently seen first.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "device archive not configured")
		return
	}

	devices, err := s.archive.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeProblem(w, r, http.StatusInternalServerError, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}
