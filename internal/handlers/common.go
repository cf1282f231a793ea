package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/storage"
)

const maxBodySize = 1024 * 1024

type Handler struct {
	store    storage.Store
	resolver *resolver.Resolver
}

func New(store storage.Store, res *resolver.Resolver) *Handler {
	return &Handler{
		store:    store,
		resolver: res,
	}
}

// Routes registers the API on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/records", h.HandleRecords)
	mux.HandleFunc("/api/lookup", h.HandleLookup)
	mux.HandleFunc("/api/resolve", h.HandleResolve)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}
