package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/api/response"
	"github.com/ramonehamilton/TCG-Companion/internal/charts"
	"github.com/ramonehamilton/TCG-Companion/internal/export"
	"github.com/ramonehamilton/TCG-Companion/internal/stats"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

// DeckStore is the subset of the deck service the handlers use.
type DeckStore interface {
	ListDecks(ctx context.Context) ([]string, error)
	CreateDeck(ctx context.Context, name string) (*models.Deck, error)
	LoadDeck(ctx context.Context, name string) (*models.Deck, error)
	DeleteDeck(ctx context.Context, name string) error
	AddCardByID(ctx context.Context, name, cardID string) (*models.Deck, error)
	RemoveCardAt(ctx context.Context, name string, index int) (*models.Deck, error)
	RecordBattle(ctx context.Context, name, result, opponent string) (*models.Deck, error)
}

// DeckHandler handles deck-related API requests.
type DeckHandler struct {
	store DeckStore
	now   func() time.Time
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(store DeckStore) *DeckHandler {
	return &DeckHandler{store: store, now: time.Now}
}

// DeckResponse is a deck snapshot with its summary statistics.
type DeckResponse struct {
	*models.Deck
	Stats stats.Stats `json:"stats"`
}

// DeckStatsResponse holds the statistics views of a deck.
type DeckStatsResponse struct {
	Stats         stats.Stats          `json:"stats"`
	RunningTotals []stats.RunningTotal `json:"running_totals"`
	Streaks       stats.StreakStats    `json:"streaks"`
	Period        string               `json:"period,omitempty"`
}

// CreateDeckRequest represents a request to create a deck.
type CreateDeckRequest struct {
	Name string `json:"name"`
}

// AddCardRequest represents a request to add a catalog card to a deck.
type AddCardRequest struct {
	CardID string `json:"card_id"`
}

// RecordBattleRequest represents a request to record a battle outcome.
type RecordBattleRequest struct {
	Result   string `json:"result"`
	Opponent string `json:"opponent"`
}

// ListDecks returns all deck names.
func (h *DeckHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListDecks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, names)
}

// CreateDeck creates a new deck.
func (h *DeckHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req CreateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}

	deck, err := h.store.CreateDeck(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, deckResponse(deck))
}

// GetDeck returns a deck with its statistics.
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := h.store.LoadDeck(r.Context(), urlParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, deckResponse(deck))
}

// DeleteDeck deletes a deck.
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteDeck(r.Context(), urlParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}

// AddCard adds one copy of a catalog card to a deck.
func (h *DeckHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	var req AddCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}

	deck, err := h.store.AddCardByID(r.Context(), urlParam(r, "name"), req.CardID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, deckResponse(deck))
}

// RemoveCard removes the card entry at the given position.
func (h *DeckHandler) RemoveCard(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(urlParam(r, "index"))
	if err != nil {
		response.BadRequest(w, errors.New("card index must be an integer"))
		return
	}

	deck, err := h.store.RemoveCardAt(r.Context(), urlParam(r, "name"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, deckResponse(deck))
}

// RecordBattle appends a battle to a deck's history.
func (h *DeckHandler) RecordBattle(w http.ResponseWriter, r *http.Request) {
	var req RecordBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}

	deck, err := h.store.RecordBattle(r.Context(), urlParam(r, "name"), req.Result, req.Opponent)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, deckResponse(deck))
}

// GetDeckStats returns summary, running totals and streaks. The optional
// "week" or "month" query parameter restricts the summary to a period,
// counted back from now (0 = current, -1 = previous).
func (h *DeckHandler) GetDeckStats(w http.ResponseWriter, r *http.Request) {
	deck, err := h.store.LoadDeck(r.Context(), urlParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	battles := deck.Battles
	resp := DeckStatsResponse{}
	query := r.URL.Query()
	switch {
	case query.Get("week") != "":
		offset, err := strconv.Atoi(query.Get("week"))
		if err != nil {
			response.BadRequest(w, errors.New("week must be an integer offset"))
			return
		}
		tr := stats.WeekRangeFrom(h.now(), offset)
		battles = stats.FilterBattles(battles, tr)
		resp.Period = stats.GetWeekLabel(offset) + " (" + tr.FormatPeriod() + ")"
	case query.Get("month") != "":
		offset, err := strconv.Atoi(query.Get("month"))
		if err != nil {
			response.BadRequest(w, errors.New("month must be an integer offset"))
			return
		}
		tr := stats.MonthRangeFrom(h.now(), offset)
		battles = stats.FilterBattles(battles, tr)
		resp.Period = stats.GetMonthLabel(offset) + " (" + tr.FormatPeriod() + ")"
	}

	resp.Stats = stats.Compute(battles)
	resp.RunningTotals = stats.RunningTotals(battles)
	resp.Streaks = stats.CalculateStreaks(battles)
	response.Success(w, resp)
}

// GetDeckChart renders the deck's battle history as an HTML chart page.
func (h *DeckHandler) GetDeckChart(w http.ResponseWriter, r *http.Request) {
	deck, err := h.store.LoadDeck(r.Context(), urlParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	err = charts.RenderDeckReport(&buf, deck.Name,
		stats.RunningTotals(deck.Battles), stats.Compute(deck.Battles), charts.DefaultChartConfig())
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.HTML(w, buf.Bytes())
}

// ExportDeck downloads a deck's battles or cards.
// Query params: kind (battles|cards, default battles), format (csv|json, default csv).
func (h *DeckHandler) ExportDeck(w http.ResponseWriter, r *http.Request) {
	kind, format := export.KindBattles, export.FormatCSV
	var err error
	if v := r.URL.Query().Get("kind"); v != "" {
		if kind, err = export.ParseKind(v); err != nil {
			response.BadRequest(w, err)
			return
		}
	}
	if v := r.URL.Query().Get("format"); v != "" {
		if format, err = export.ParseFormat(v); err != nil {
			response.BadRequest(w, err)
			return
		}
	}

	deck, err := h.store.LoadDeck(r.Context(), urlParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.ExportToWriter(&buf, format, export.Rows(deck, kind), true); err != nil {
		response.InternalError(w, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == export.FormatJSON {
		contentType = "application/json"
	}
	response.Attachment(w, contentType, export.GenerateFilename(deck.Name, kind, format, h.now()), buf.Bytes())
}

func deckResponse(deck *models.Deck) DeckResponse {
	return DeckResponse{Deck: deck, Stats: stats.Compute(deck.Battles)}
}
