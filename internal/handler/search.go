package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/medicore/medicore-api/internal/search"
)

// SearchHandler serves aggregated reference search.
type SearchHandler struct {
	search *search.Aggregator
}

func NewSearchHandler(agg *search.Aggregator) *SearchHandler {
	return &SearchHandler{search: agg}
}

// HandleSearch queries every provider.
// GET /search?query=...
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing query")
		return
	}

	results, err := h.search.Search(r.Context(), query)
	if err != nil {
		slog.WarnContext(r.Context(), "search aborted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Search unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": toSearchResultDTOs(results)})
}

// HandleProvider queries a single provider.
// GET /search/{provider}?q=...
func (h *SearchHandler) HandleProvider(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.search.Lookup(r.PathValue("provider"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown search provider")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing query")
		return
	}

	results := h.search.SearchOne(r.Context(), provider, query)
	writeJSON(w, http.StatusOK, map[string]any{"results": toSearchResultDTOs(results)})
}
