package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/TCG-Companion/internal/api/handlers"
	"github.com/ramonehamilton/TCG-Companion/internal/api/response"
	"github.com/ramonehamilton/TCG-Companion/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint (no JSON content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		deckHandler := handlers.NewDeckHandler(s.decks)
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

		cardHandler := handlers.NewCardHandler(s.decks)
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cardHandler.SearchCards)
			r.Get("/{cardID}", cardHandler.GetCard)
		})
		r.Get("/catalog", cardHandler.GetCatalogStatus)

		r.Get("/metrics", s.getMetrics)
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "tcg-companion-api",
		"version": version.GetVersion(),
	})
}

// getMetrics returns request and deck change counters.
func (s *Server) getMetrics(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.metrics.GetStats())
}
