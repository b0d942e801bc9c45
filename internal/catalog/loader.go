package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Loader is one place the catalog can be read from.
type Loader interface {
	Source() Source
	Load(ctx context.Context) ([]Card, error)
}

var errEmptyCatalog = errors.New("catalog contains no cards")

// Load tries each loader in order and builds an index from the first one that
// returns cards. It never fails: when preferred loaders fail their errors become
// the index warning, and when every loader fails the index is empty.
func Load(ctx context.Context, logger *slog.Logger, loaders ...Loader) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	if len(loaders) == 0 {
		return NewIndex(nil, SourceNone, "no card catalog sources configured")
	}

	var failures []string
	for _, loader := range loaders {
		cards, err := loader.Load(ctx)
		if err == nil && len(cards) == 0 {
			err = errEmptyCatalog
		}
		if err != nil {
			logger.Warn("card catalog source failed", "source", loader.Source(), "error", err)
			failures = append(failures, fmt.Sprintf("%s catalog: %v", loader.Source(), err))
			continue
		}

		warning := ""
		if len(failures) > 0 {
			warning = fmt.Sprintf("%s; using %s catalog", strings.Join(failures, "; "), loader.Source())
		}
		idx := NewIndex(cards, loader.Source(), warning)
		logger.Info("card catalog loaded", "source", idx.Source(), "cards", idx.Len())
		return idx
	}

	logger.Error("card catalog unavailable, continuing with empty catalog", "failures", len(failures))
	return NewIndex(nil, SourceNone, "card catalog unavailable: "+strings.Join(failures, "; "))
}
