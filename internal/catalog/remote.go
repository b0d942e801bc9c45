package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRemoteBaseURL serves cards.json and sets.json for Pokemon TCG Pocket.
	DefaultRemoteBaseURL = "https://raw.githubusercontent.com/flibustier/pokemon-tcg-pocket-database/main/dist"

	rateLimitDelay = 100 * time.Millisecond
	requestTimeout = 15 * time.Second
	maxRetries     = 2
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 4 * time.Second
)

type remoteCard struct {
	Set    string            `json:"set"`
	Number json.Number       `json:"number"`
	Label  map[string]string `json:"label"`
}

type remoteSet struct {
	Code  string            `json:"code"`
	Label map[string]string `json:"label"`
}

// RemoteSource downloads the catalog over HTTP with rate limiting and retries.
type RemoteSource struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
}

// RemoteOptions configures a RemoteSource.
type RemoteOptions struct {
	// BaseURL is the directory holding cards.json and sets.json.
	// Default: DefaultRemoteBaseURL
	BaseURL string

	// Timeout bounds each HTTP request.
	// Default: 15 seconds
	Timeout time.Duration

	// RateLimit is the minimum delay between requests.
	// Default: 100ms
	RateLimit time.Duration
}

// NewRemoteSource creates a remote catalog source.
func NewRemoteSource(options RemoteOptions) *RemoteSource {
	if options.BaseURL == "" {
		options.BaseURL = DefaultRemoteBaseURL
	}
	if options.Timeout <= 0 {
		options.Timeout = requestTimeout
	}
	if options.RateLimit <= 0 {
		options.RateLimit = rateLimitDelay
	}

	return &RemoteSource{
		baseURL:     strings.TrimRight(options.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: options.Timeout},
		rateLimiter: rate.NewLimiter(rate.Every(options.RateLimit), 1),
		userAgent:   "TCG-Companion/1.0",
	}
}

// Source implements Loader.
func (s *RemoteSource) Source() Source {
	return SourceRemote
}

// Load fetches cards and sets and joins them into catalog records.
func (s *RemoteSource) Load(ctx context.Context) ([]Card, error) {
	var rawCards []remoteCard
	if err := s.doRequest(ctx, s.baseURL+"/cards.json", &rawCards); err != nil {
		return nil, fmt.Errorf("failed to fetch cards: %w", err)
	}

	var rawSets []remoteSet
	if err := s.doRequest(ctx, s.baseURL+"/sets.json", &rawSets); err != nil {
		return nil, fmt.Errorf("failed to fetch sets: %w", err)
	}

	return convertRemoteCards(rawCards, rawSets), nil
}

func convertRemoteCards(rawCards []remoteCard, rawSets []remoteSet) []Card {
	setNames := make(map[string]string, len(rawSets))
	for _, set := range rawSets {
		if set.Code == "" {
			continue
		}
		setNames[strings.ToLower(set.Code)] = pickLabel(set.Label, set.Code)
	}

	cards := make([]Card, 0, len(rawCards))
	for _, raw := range rawCards {
		setCode := strings.TrimSpace(raw.Set)
		if setCode == "" {
			continue
		}

		number, err := strconv.Atoi(strings.TrimSpace(raw.Number.String()))
		if err != nil {
			continue
		}

		name := strings.TrimSpace(pickLabel(raw.Label, ""))
		if name == "" {
			continue
		}

		setName := setNames[strings.ToLower(setCode)]
		if setName == "" {
			setName = setCode
		}

		cards = append(cards, Card{
			ID:   fmt.Sprintf("%s-%03d", strings.ToLower(setCode), number),
			Name: name,
			Set:  fmt.Sprintf("%s (%s)", setName, setCode),
		})
	}
	return cards
}

// pickLabel prefers the English label under either of the keys the dataset uses.
func pickLabel(label map[string]string, fallback string) string {
	for _, key := range []string{"eng", "en"} {
		if value, ok := label[key]; ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return fallback
}

// doRequest performs an HTTP GET with rate limiting and retry logic.
func (s *RemoteSource) doRequest(ctx context.Context, url string, result interface{}) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", s.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			if attempt < maxRetries && ctx.Err() == nil {
				time.Sleep(backoff)
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to read response body: %w", err)
			}
			decoder := json.NewDecoder(bytes.NewReader(body))
			decoder.UseNumber()
			if err := decoder.Decode(result); err != nil {
				return fmt.Errorf("failed to parse JSON response: %w", err)
			}
			return nil

		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server busy (HTTP %d)", resp.StatusCode)
			if attempt < maxRetries {
				time.Sleep(backoff)
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr

		default:
			_ = resp.Body.Close()
			return fmt.Errorf("unexpected status code %d", resp.StatusCode)
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
