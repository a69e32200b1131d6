package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"mediastock/internal/docstore"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeStoreError maps a document-store failure onto an HTTP status:
// missing documents become 404, everything else 500.
func writeStoreError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, docstore.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fallback})
}
