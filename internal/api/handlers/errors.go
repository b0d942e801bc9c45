package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/TCG-Companion/internal/api/response"
	"github.com/ramonehamilton/TCG-Companion/internal/decks"
)

// writeError maps deck store errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, decks.ErrInvalidName),
		errors.Is(err, decks.ErrIndexOutOfRange),
		errors.Is(err, decks.ErrInvalidResult):
		response.BadRequest(w, err)
	case errors.Is(err, decks.ErrNotFound):
		response.NotFound(w, err)
	case errors.Is(err, decks.ErrDuplicate),
		errors.Is(err, decks.ErrCopyLimit):
		response.Conflict(w, err)
	case errors.Is(err, decks.ErrUnknownCard):
		response.UnprocessableEntity(w, err)
	default:
		response.InternalError(w, err)
	}
}

// urlParam returns a path parameter with percent-encoding removed, so deck
// names containing "/" or spaces round-trip. chi matches against RawPath when
// the request has one and the parameter is still encoded; otherwise the
// router already saw the decoded path and the value is returned as is.
func urlParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value
	}
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}
