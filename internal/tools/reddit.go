package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/growwit/internal/campaign"
)

// DefaultRedditBaseURL is the public Reddit JSON API.
const DefaultRedditBaseURL = "https://www.reddit.com"

// BrowserUserAgent is sent on every Reddit request. Reddit blocks the
// default Go user agent.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// redditToolName tags errors raised by the shared client.
const redditToolName = "reddit"

// Defaults for RedditConfig.
const (
	DefaultRedditTimeout = 10 * time.Second
	DefaultTopLimit      = 100
)

// maxRedditBody bounds a Reddit JSON response.
const maxRedditBody = 8 << 20

// RedditConfig configures the Reddit client.
type RedditConfig struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	TopLimit   int
	HTTPClient *http.Client
}

// RedditClient reads public subreddit data.
type RedditClient struct {
	cfg    RedditConfig
	client *http.Client
	logger *logging.Logger
}

// NewRedditClient creates a client, filling unset fields with defaults.
func NewRedditClient(cfg RedditConfig) *RedditClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRedditBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = BrowserUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRedditTimeout
	}
	if cfg.TopLimit <= 0 || cfg.TopLimit > DefaultTopLimit {
		cfg.TopLimit = DefaultTopLimit
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &RedditClient{cfg: cfg, client: client, logger: logging.New().WithComponent("reddit")}
}

// cleanSubreddit strips any r/ prefix or URL around a community name.
func cleanSubreddit(tool, s string) (string, error) {
	name := campaign.SubredditName(s)
	if name == "" {
		return "", &Error{Kind: KindInput, Tool: tool, Message: fmt.Sprintf("invalid subreddit %q", s)}
	}
	return name, nil
}

// getJSON fetches path and decodes the body into v. Responses are shared
// through the request memo when one is attached to ctx.
func (c *RedditClient) getJSON(ctx context.Context, path string, v interface{}) error {
	url := c.cfg.BaseURL + path
	fetch := func() ([]byte, error) { return c.fetch(ctx, url) }

	var body []byte
	var err error
	if memo := MemoFrom(ctx); memo != nil {
		body, err = memo.Do(url, fetch)
	} else {
		body, err = fetch()
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{Kind: KindUpstream, Tool: redditToolName, Message: "failed to parse response", Err: err}
	}
	return nil
}

func (c *RedditClient) fetch(ctx context.Context, url string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://www.reddit.com/")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &Error{Kind: KindTimeout, Tool: redditToolName, Message: "request timed out", Err: err}
		}
		return nil, &Error{Kind: KindUpstream, Tool: redditToolName, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindUpstream, Tool: redditToolName, Message: "Reddit API error", Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRedditBody))
	if err != nil {
		return nil, &Error{Kind: KindUpstream, Tool: redditToolName, Message: "failed to read response", Err: err}
	}
	return body, nil
}

// statusOf returns the HTTP status carried by a tool error, or 0.
func statusOf(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}
