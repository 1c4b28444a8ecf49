package wellknown

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler provides HTTP handlers for the well-known endpoints
type Handler struct {
	config Config
}

// NewHandler creates a new well-known endpoints handler
func NewHandler(config Config) *Handler {
	return &Handler{config: config}
}

// AuthorizationServerMetadata handles GET /.well-known/oauth-authorization-server
func (h *Handler) AuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	h.writeMetadata(w, NewAuthorizationServerMetadata(h.config))
}

// OpenIDConfiguration handles GET /.well-known/openid-configuration
func (h *Handler) OpenIDConfiguration(w http.ResponseWriter, r *http.Request) {
	h.writeMetadata(w, NewOpenIDConfiguration(h.config))
}

func (h *Handler) writeMetadata(w http.ResponseWriter, metadata interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := json.NewEncoder(w).Encode(metadata); err != nil {
		slog.Error("Failed to encode discovery metadata", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
