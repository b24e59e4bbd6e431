package api

import (
	"net/http"

	"github.com/okian/arena/internal/domain/model"
)

// CatalogDependencies defines the interface for catalog reads.
type CatalogDependencies interface {
	Items() ([]model.Item, error)
	Suggest(name string) string
}

// CatalogHandler handles catalog requests.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

// HandleListItems handles GET /llms requests.
func (h *CatalogHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_items"
	items, err := h.deps.Items()
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}
