package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError writes {"error": msg} with the given status.
func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
