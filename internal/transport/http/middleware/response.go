package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes {"ok":false,"error":code} with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": code})
}
