package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ramonehamilton/TCG-Companion/internal/api/response"
	"github.com/ramonehamilton/TCG-Companion/internal/catalog"
)

const defaultSearchLimit = 50

// CardCatalog is the card lookup surface the handlers use.
type CardCatalog interface {
	SearchCards(term string, limit int) []catalog.Card
	Catalog() *catalog.Index
}

// CardHandler handles card-related API requests.
type CardHandler struct {
	cards CardCatalog
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cards CardCatalog) *CardHandler {
	return &CardHandler{cards: cards}
}

// CatalogStatus describes the loaded card catalog.
type CatalogStatus struct {
	Source  catalog.Source `json:"source"`
	Cards   int            `json:"cards"`
	Warning string         `json:"warning,omitempty"`
}

// SearchCards searches the catalog by name or set. "limit" defaults to 50.
func (h *CardHandler) SearchCards(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search")
	limitStr := r.URL.Query().Get("limit")

	limit := defaultSearchLimit
	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			response.BadRequest(w, errors.New("limit must be a positive integer"))
			return
		}
		limit = l
	}

	response.Success(w, h.cards.SearchCards(term, limit))
}

// GetCard returns a catalog card by id.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID := urlParam(r, "cardID")
	card, ok := h.cards.Catalog().Lookup(cardID)
	if !ok {
		response.NotFound(w, errors.New("card not found"))
		return
	}
	response.Success(w, card)
}

// GetCatalogStatus reports where the catalog came from and any load warning.
func (h *CardHandler) GetCatalogStatus(w http.ResponseWriter, _ *http.Request) {
	idx := h.cards.Catalog()
	response.Success(w, CatalogStatus{
		Source:  idx.Source(),
		Cards:   idx.Len(),
		Warning: idx.Warning(),
	})
}
