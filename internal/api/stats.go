package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gobeyondidentity/keyissuer/pkg/telemetry"
)

func (s *Server) handleStatsAppend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Failed to read body: "+err.Error())
		return
	}

	n, err := s.stats.Append(body)
	if errors.Is(err, telemetry.ErrInvalidPayload) {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err != nil {
		writeInternalError(w, r, err, "Failed to save stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  n,
	})
}

func (s *Server) handleStatsList(w http.ResponseWriter, r *http.Request) {
	values, err := s.stats.All()
	if err != nil {
		writeInternalError(w, r, err, "Failed to read stats")
		return
	}
	writeJSON(w, http.StatusOK, values)
}
