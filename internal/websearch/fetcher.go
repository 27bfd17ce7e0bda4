// Package websearch fetches research articles from the external search API
// and normalizes them into canonical articles.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/novaiq/backend/internal/domain"
	"github.com/novaiq/backend/internal/logger"
	"github.com/novaiq/backend/internal/retry"
)

// FetchStatus tags a fetch outcome so callers can tell an intentionally
// empty result from a failed one.
type FetchStatus string

const (
	// FetchOK means the search API responded and results were normalized.
	FetchOK FetchStatus = "ok"
	// FetchDisabled means no API key is configured.
	FetchDisabled FetchStatus = "disabled"
	// FetchDegraded means the search API was unreachable or returned
	// garbage; Err carries the cause.
	FetchDegraded FetchStatus = "degraded"
)

// FetchResult is the outcome of one search fetch.
type FetchResult struct {
	Status   FetchStatus
	Articles []domain.CanonicalArticle
	Err      error
}

const (
	// searchPath is the search endpoint on the API base URL.
	searchPath = "/api/search"

	// defaultTitle is used for hits without a title.
	defaultTitle = "Untitled"

	// defaultSource is used for hits without a source name.
	defaultSource = "search"

	defaultTimeout = 30 * time.Second
)

// Config holds fetcher settings. An empty APIKey disables the capability.
type Config struct {
	APIKey           string
	BaseURL          string
	Timeout          time.Duration
	MinContentLength int
}

// Fetcher queries the search API and normalizes hits into canonical articles.
type Fetcher struct {
	cfg    Config
	client *http.Client
	log    logger.Logger
}

// New creates a fetcher. The capability is disabled when no API key is set.
func New(cfg Config, log logger.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Enabled reports whether the search capability is configured.
func (f *Fetcher) Enabled() bool {
	return f.cfg.APIKey != ""
}

// searchResponse is the wire format of the search API.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Snippet       string `json:"snippet"`
	Source        string `json:"source"`
	PublishedDate string `json:"published_date"`
}

// Fetch queries the search API and returns up to maxResults normalized
// articles. Results without a URL or with content shorter than the configured
// minimum are dropped. A missing API key yields a disabled result and a
// transport or decode failure yields a degraded one; neither is an error the
// caller has to unwrap.
func (f *Fetcher) Fetch(ctx context.Context, query string, maxResults int) *FetchResult {
	if !f.Enabled() {
		return &FetchResult{Status: FetchDisabled}
	}

	endpoint, buildErr := f.buildURL(query, maxResults)
	if buildErr != nil {
		return &FetchResult{Status: FetchDegraded, Err: buildErr}
	}

	var body []byte
	fetchErr := retry.DoWithDefaults(ctx, func() error {
		var requestErr error
		body, requestErr = f.doRequest(ctx, endpoint)
		return requestErr
	})
	if fetchErr != nil {
		return &FetchResult{
			Status: FetchDegraded,
			Err:    fmt.Errorf("fetch search results: %w", fetchErr),
		}
	}

	var response searchResponse
	if unmarshalErr := json.Unmarshal(body, &response); unmarshalErr != nil {
		return &FetchResult{
			Status: FetchDegraded,
			Err:    fmt.Errorf("decode search response: %w", unmarshalErr),
		}
	}

	return &FetchResult{
		Status:   FetchOK,
		Articles: f.normalize(response.Results, maxResults),
	}
}

func (f *Fetcher) buildURL(query string, maxResults int) (string, error) {
	base, parseErr := url.Parse(f.cfg.BaseURL)
	if parseErr != nil {
		return "", fmt.Errorf("parse search base url: %w", parseErr)
	}

	base.Path = searchPath
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(maxResults))
	base.RawQuery = params.Encode()

	return base.String(), nil
}

func (f *Fetcher) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if reqErr != nil {
		return nil, fmt.Errorf("build search request: %w", reqErr)
	}
	req.Header.Set("Authorization", "Bearer "+f.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("search request: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("read search response: %w", readErr)
	}

	return body, nil
}

// normalize converts raw results into canonical articles, dropping results
// without a URL or with too little content, and caps the output at
// maxResults.
func (f *Fetcher) normalize(results []searchResult, maxResults int) []domain.CanonicalArticle {
	articles := make([]domain.CanonicalArticle, 0, len(results))

	for _, result := range results {
		if len(articles) >= maxResults {
			break
		}

		if strings.TrimSpace(result.URL) == "" {
			continue
		}

		content := strings.TrimSpace(result.Snippet)
		if len(content) < f.cfg.MinContentLength {
			f.log.Debug("skipping result with short content",
				logger.String("url", result.URL),
				logger.Int("content_length", len(content)))
			continue
		}

		title := strings.TrimSpace(result.Title)
		if title == "" {
			title = defaultTitle
		}

		source := strings.TrimSpace(result.Source)
		if source == "" {
			source = defaultSource
		}

		articles = append(articles, domain.NewCanonicalArticle(
			result.URL,
			title,
			content,
			source,
			domain.ParsePublishedAt(result.PublishedDate),
		))
	}

	return articles
}
