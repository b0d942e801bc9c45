package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/TCG-Companion/internal/catalog"
	"github.com/ramonehamilton/TCG-Companion/internal/decks"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/filestore"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

var testCards = []catalog.Card{
	{ID: "a1-001", Name: "Bulbasaur", Set: "Genetic Apex (A1)"},
	{ID: "a1-033", Name: "Charmander", Set: "Genetic Apex (A1)"},
	{ID: "a1-036", Name: "Charizard ex", Set: "Genetic Apex (A1)"},
}

func newTestService(t *testing.T) *decks.Service {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := filestore.New(t.TempDir(), logger)
	require.NoError(t, err)
	return decks.NewService(store, catalog.NewIndex(testCards, catalog.SourceLocal, ""), decks.Options{Logger: logger})
}

func newTestRouter(store DeckStore, cards CardCatalog) http.Handler {
	r := chi.NewRouter()
	deckHandler := NewDeckHandler(store)
	r.Route("/decks", func(r chi.Router) {
		r.Get("/", deckHandler.ListDecks)
		r.Post("/", deckHandler.CreateDeck)
		r.Get("/{name}", deckHandler.GetDeck)
		r.Delete("/{name}", deckHandler.DeleteDeck)
		r.Post("/{name}/cards", deckHandler.AddCard)
		r.Delete("/{name}/cards/{index}", deckHandler.RemoveCard)
		r.Post("/{name}/battles", deckHandler.RecordBattle)
		r.Get("/{name}/stats", deckHandler.GetDeckStats)
		r.Get("/{name}/chart", deckHandler.GetDeckChart)
		r.Get("/{name}/export", deckHandler.ExportDeck)
	})
	if cards != nil {
		cardHandler := NewCardHandler(cards)
		r.Get("/cards", cardHandler.SearchCards)
		r.Get("/cards/{cardID}", cardHandler.GetCard)
		r.Get("/catalog", cardHandler.GetCatalogStatus)
	}
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func TestDeckHandler_Lifecycle(t *testing.T) {
	h := newTestRouter(newTestService(t), nil)

	rec := do(t, h, http.MethodPost, "/decks", CreateDeckRequest{Name: "Alpha"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/decks", CreateDeckRequest{Name: "Alpha"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/decks", CreateDeckRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/decks/Alpha/cards", AddCardRequest{CardID: "a1-033"})
	require.Equal(t, http.StatusOK, rec.Code)
	var deck DeckResponse
	decodeData(t, rec, &deck)
	require.Len(t, deck.Cards, 1)
	assert.Equal(t, "Charmander", deck.Cards[0].Name)

	rec = do(t, h, http.MethodPost, "/decks/Alpha/cards", AddCardRequest{CardID: "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	for _, result := range []string{"W", "L", "w"} {
		rec = do(t, h, http.MethodPost, "/decks/Alpha/battles", RecordBattleRequest{Result: result, Opponent: "Fire Deck"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/decks/Alpha/battles", RecordBattleRequest{Result: "draw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/decks/Alpha", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deck = DeckResponse{}
	decodeData(t, rec, &deck)
	assert.Equal(t, "Alpha", deck.Name)
	assert.Equal(t, 3, deck.Stats.TotalBattles)
	assert.Equal(t, 66.67, deck.Stats.WinPercentage)
	assert.Equal(t, map[string]int{"Fire Deck": 1}, deck.Stats.LossByOpponent)

	rec = do(t, h, http.MethodDelete, "/decks/Alpha/cards/3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodDelete, "/decks/Alpha/cards/x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodDelete, "/decks/Alpha/cards/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/decks", nil)
	var names []string
	decodeData(t, rec, &names)
	assert.Equal(t, []string{"Alpha"}, names)

	rec = do(t, h, http.MethodDelete, "/decks/Alpha", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/decks/Alpha", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeckHandler_NotFound(t *testing.T) {
	h := newTestRouter(newTestService(t), nil)

	for _, tc := range []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, "/decks/Missing", nil},
		{http.MethodGet, "/decks/Missing/stats", nil},
		{http.MethodGet, "/decks/Missing/chart", nil},
		{http.MethodPost, "/decks/Missing/cards", AddCardRequest{CardID: "a1-001"}},
		{http.MethodPost, "/decks/Missing/battles", RecordBattleRequest{Result: "W"}},
		{http.MethodDelete, "/decks/Missing/cards/0", nil},
	} {
		rec := do(t, h, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestDeckHandler_EscapedName(t *testing.T) {
	h := newTestRouter(newTestService(t), nil)

	rec := do(t, h, http.MethodPost, "/decks", CreateDeckRequest{Name: "Water/Ice Deck"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/decks/"+url.PathEscape("Water/Ice Deck"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deck DeckResponse
	decodeData(t, rec, &deck)
	assert.Equal(t, "Water/Ice Deck", deck.Name)
}

func TestDeckHandler_PercentInName(t *testing.T) {
	h := newTestRouter(newTestService(t), nil)

	for _, name := range []string{"50%41", "100% Fire", "50%/50%"} {
		rec := do(t, h, http.MethodPost, "/decks", CreateDeckRequest{Name: name})
		require.Equal(t, http.StatusCreated, rec.Code, name)

		rec = do(t, h, http.MethodGet, "/decks/"+url.PathEscape(name), nil)
		require.Equal(t, http.StatusOK, rec.Code, name)
		var deck DeckResponse
		decodeData(t, rec, &deck)
		assert.Equal(t, name, deck.Name)
	}

	// "50%41" must not be decoded a second time into "50A".
	rec := do(t, h, http.MethodGet, "/decks/50A", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeckHandler_InvalidBody(t *testing.T) {
	h := newTestRouter(newTestService(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/decks", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeckHandler_Stats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateDeck(ctx, "Alpha")
	require.NoError(t, err)
	for _, result := range []string{"W", "L", "L"} {
		_, err := svc.RecordBattle(ctx, "Alpha", result, "Opp")
		require.NoError(t, err)
	}
	h := newTestRouter(svc, nil)

	rec := do(t, h, http.MethodGet, "/decks/Alpha/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp DeckStatsResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, 3, resp.Stats.TotalBattles)
	assert.Equal(t, 33.33, resp.Stats.WinPercentage)
	assert.Len(t, resp.RunningTotals, 3)
	assert.Equal(t, -2, resp.Streaks.CurrentStreak)

	rec = do(t, h, http.MethodGet, "/decks/Alpha/stats?week=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = DeckStatsResponse{}
	decodeData(t, rec, &resp)
	assert.Equal(t, 3, resp.Stats.TotalBattles)
	assert.Contains(t, resp.Period, "This Week")

	rec = do(t, h, http.MethodGet, "/decks/Alpha/stats?month=-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = DeckStatsResponse{}
	decodeData(t, rec, &resp)
	assert.Equal(t, 0, resp.Stats.TotalBattles)
	assert.Contains(t, resp.Period, "Last Month")

	rec = do(t, h, http.MethodGet, "/decks/Alpha/stats?week=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeckHandler_Chart(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateDeck(context.Background(), "Alpha")
	require.NoError(t, err)
	_, err = svc.RecordBattle(context.Background(), "Alpha", "L", "Fire Deck")
	require.NoError(t, err)

	rec := do(t, newTestRouter(svc, nil), http.MethodGet, "/decks/Alpha/chart", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")
}

func TestDeckHandler_Export(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateDeck(ctx, "Alpha")
	require.NoError(t, err)
	_, err = svc.AddCardByID(ctx, "Alpha", "a1-033")
	require.NoError(t, err)
	_, err = svc.RecordBattle(ctx, "Alpha", "W", "Water Deck")
	require.NoError(t, err)
	h := newTestRouter(svc, nil)

	rec := do(t, h, http.MethodGet, "/decks/Alpha/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "number,result,opponent,timestamp", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,W,Water Deck,"))

	rec = do(t, h, http.MethodGet, "/decks/Alpha/export?kind=cards&format=json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"card_id": "a1-033"`)

	rec = do(t, h, http.MethodGet, "/decks/Alpha/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/decks/Alpha/export?kind=matches", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/decks/Missing/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// brokenStore fails every call with a persistence error.
type brokenStore struct{ DeckStore }

func (brokenStore) ListDecks(context.Context) ([]string, error) {
	return nil, fmt.Errorf("%w: disk unavailable", decks.ErrPersistence)
}

func (brokenStore) CreateDeck(context.Context, string) (*models.Deck, error) {
	return nil, fmt.Errorf("%w: %w", decks.ErrPersistence, errors.New("read-only file system"))
}

func TestDeckHandler_PersistenceFailure(t *testing.T) {
	h := newTestRouter(brokenStore{}, nil)

	rec := do(t, h, http.MethodGet, "/decks", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, h, http.MethodPost, "/decks", CreateDeckRequest{Name: "Alpha"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCardHandler(t *testing.T) {
	svc := newTestService(t)
	h := newTestRouter(svc, svc)

	rec := do(t, h, http.MethodGet, "/cards?search=char", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cards []catalog.Card
	decodeData(t, rec, &cards)
	require.Len(t, cards, 2)
	assert.Equal(t, "Charmander", cards[0].Name)

	rec = do(t, h, http.MethodGet, "/cards?search=&limit=1", nil)
	cards = nil
	decodeData(t, rec, &cards)
	assert.Len(t, cards, 1)

	rec = do(t, h, http.MethodGet, "/cards?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/cards/A1-036", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var card catalog.Card
	decodeData(t, rec, &card)
	assert.Equal(t, "Charizard ex", card.Name)

	rec = do(t, h, http.MethodGet, "/cards/zz-000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/catalog", nil)
	var status CatalogStatus
	decodeData(t, rec, &status)
	assert.Equal(t, CatalogStatus{Source: catalog.SourceLocal, Cards: 3}, status)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{decks.ErrInvalidName, http.StatusBadRequest},
		{fmt.Errorf("%w: 9", decks.ErrIndexOutOfRange), http.StatusBadRequest},
		{decks.ErrInvalidResult, http.StatusBadRequest},
		{decks.ErrNotFound, http.StatusNotFound},
		{decks.ErrDuplicate, http.StatusConflict},
		{fmt.Errorf("%w: deck already holds 2", decks.ErrCopyLimit), http.StatusConflict},
		{decks.ErrUnknownCard, http.StatusUnprocessableEntity},
		{decks.ErrPersistence, http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestDeckHandler_StatsUsesClock(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateDeck(context.Background(), "Alpha")
	require.NoError(t, err)
	_, err = svc.RecordBattle(context.Background(), "Alpha", "W", "Opp")
	require.NoError(t, err)

	handler := NewDeckHandler(svc)
	handler.now = func() time.Time { return time.Now().AddDate(0, 0, 21) }
	r := chi.NewRouter()
	r.Get("/decks/{name}/stats", handler.GetDeckStats)

	rec := do(t, r, http.MethodGet, "/decks/Alpha/stats?week=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp DeckStatsResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, 0, resp.Stats.TotalBattles)
}
