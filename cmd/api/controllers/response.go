package cmd_controllers

import (
	"encoding/json"
	"net/http"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
)

// apiResponse is the uniform REST envelope.
type apiResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, message, map[string]any{})
}

// AuthMiddleware lifts the verified identity headers a fronting gateway
// sets into the request context. Verification itself happens upstream.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		username := r.Header.Get("X-User-Name")
		if userID != "" && username != "" {
			r = r.WithContext(domain.WithUser(r.Context(), domain.User{ID: userID, Username: username}))
		}
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware allows the configured frontend origin.
func CORSMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID, X-User-Name")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
