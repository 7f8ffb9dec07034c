package main

import (
	"io"
	"net/http"

	"github.com/sguter90/sparrowmaestro/pkg/ingest"
)

const maxIngestBodySize = 1 << 20

// ingestHandler receives routed events posted by a Notehub route
func (rm *RouteManager) ingestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBodySize))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if _, err := rm.ingestor.Ingest(r.Context(), ingest.TransportHTTP, payload); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{})
}
