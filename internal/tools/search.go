package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/logging"
)

// DefaultSearchEndpoint is the Tavily search API.
const DefaultSearchEndpoint = "https://api.tavily.com/search"

// DefaultSearchTimeout is the hard deadline of one search call.
const DefaultSearchTimeout = 15 * time.Second

// MaxSearchResults caps the results of one search.
const MaxSearchResults = 5

// maxErrorBody bounds how much of an upstream error body is kept.
const maxErrorBody = 4096

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchConfig configures the search tool.
type SearchConfig struct {
	Endpoint   string
	APIKey     string
	MaxResults int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Searcher calls the web search API.
type Searcher struct {
	cfg    SearchConfig
	client *http.Client
	logger *logging.Logger
}

// NewSearcher creates a searcher. A missing API key is reported when the
// tool is invoked, not here.
func NewSearcher(cfg SearchConfig) *Searcher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultSearchEndpoint
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > MaxSearchResults {
		cfg.MaxResults = MaxSearchResults
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSearchTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Searcher{cfg: cfg, client: client, logger: logging.New().WithComponent("search")}
}

// Search runs one query. Failures are returned as errors, never degraded:
// the calling agent decides how to compensate.
func (s *Searcher) Search(ctx context.Context, query string) (Result[[]SearchResult], error) {
	var none Result[[]SearchResult]
	query = strings.TrimSpace(query)
	if query == "" {
		return none, &Error{Kind: KindInput, Tool: SearchToolName, Message: "no search query provided"}
	}
	if s.cfg.APIKey == "" {
		return none, &Error{Kind: KindConfiguration, Tool: SearchToolName, Message: "TAVILY_API_KEY is not set"}
	}

	reqBody := map[string]interface{}{
		"api_key":        s.cfg.APIKey,
		"query":          query,
		"search_depth":   "advanced",
		"include_images": false,
		"include_answer": false,
		"max_results":    s.cfg.MaxResults,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return none, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return none, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return none, s.transportError(ctx, callCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return none, &Error{
			Kind:    KindUpstream,
			Tool:    SearchToolName,
			Message: "search API error",
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(body)),
		}
	}

	var tavilyResp struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tavilyResp); err != nil {
		if callCtx.Err() != nil {
			return none, s.transportError(ctx, callCtx, err)
		}
		return none, &Error{Kind: KindUpstream, Tool: SearchToolName, Message: "failed to parse search response", Err: err}
	}

	results := tavilyResp.Results
	if len(results) > s.cfg.MaxResults {
		results = results[:s.cfg.MaxResults]
	}
	if results == nil {
		results = []SearchResult{}
	}
	s.logger.Debug("search complete", map[string]interface{}{
		"results":     len(results),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return OK(results), nil
}

// transportError tells a search timeout apart from the caller going away.
func (s *Searcher) transportError(parent, callCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &Error{
			Kind:    KindTimeout,
			Tool:    SearchToolName,
			Message: fmt.Sprintf("Search tool timed out after %d seconds", int(s.cfg.Timeout.Seconds())),
		}
	}
	return &Error{Kind: KindUpstream, Tool: SearchToolName, Message: "search request failed", Err: err}
}
