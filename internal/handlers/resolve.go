package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
)

type resolveRequest struct {
	Title  string   `json:"title"`
	Titles []string `json:"titles"`
}

type outcomeResponse struct {
	Title        string                   `json:"title"`
	CleanedTitle string                   `json:"cleaned_title,omitempty"`
	State        resolver.State           `json:"state"`
	Record       *models.ResolutionRecord `json:"record,omitempty"`
	Score        int                      `json:"score,omitempty"`
	RejectReason string                   `json:"reject_reason,omitempty"`
	Inserted     bool                     `json:"inserted"`
}

func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.resolver == nil {
		h.writeError(w, "Resolver not configured", http.StatusServiceUnavailable)
		return
	}

	var request resolveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	titles := request.Titles
	if strings.TrimSpace(request.Title) != "" {
		titles = append([]string{request.Title}, titles...)
	}
	if len(titles) == 0 {
		h.writeError(w, "title or titles is required", http.StatusBadRequest)
		return
	}

	outcomes, err := h.resolver.ResolveAll(r.Context(), titles)
	if err != nil {
		h.writeError(w, "Failed to resolve titles: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := make([]outcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		response = append(response, outcomeResponse{
			Title:        o.Title,
			CleanedTitle: o.CleanedTitle,
			State:        o.State,
			Record:       o.Record,
			Score:        o.Score,
			RejectReason: o.RejectReason,
			Inserted:     o.Inserted,
		})
	}
	h.writeJSON(w, response)
}
