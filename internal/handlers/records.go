package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
)

func (h *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records, err := h.store.All(r.Context())
		if err != nil {
			h.writeError(w, "Failed to list records: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []models.ResolutionRecord{}
		}
		h.writeJSON(w, records)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		h.writeError(w, "title is required", http.StatusBadRequest)
		return
	}

	record, err := h.store.Lookup(r.Context(), title)
	if err != nil {
		h.writeError(w, "Failed to look up title: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		h.writeError(w, "Title not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, record)
}
