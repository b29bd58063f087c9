package tools

import (
	"context"
	"fmt"
	"time"
)

// Rule is one community rule.
type Rule struct {
	ShortName       string `json:"shortName"`
	Description     string `json:"description"`
	ViolationReason string `json:"violationReason,omitempty"`
}

// PostTypes lists the submission kinds a community accepts.
type PostTypes struct {
	Text   bool `json:"text"`
	Images bool `json:"images"`
	Links  bool `json:"links"`
	Videos bool `json:"videos"`
}

// SubredditRules is the output of the rules tool. FetchError is set when
// the community metadata could not be read; the caller should proceed
// with caution rather than fail.
type SubredditRules struct {
	Subreddit        string    `json:"subreddit"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Subscribers      int       `json:"subscribers"`
	Rules            []Rule    `json:"rules"`
	AllowedPostTypes PostTypes `json:"allowedPostTypes"`
	FetchError       string    `json:"fetchError,omitempty"`
}

type aboutResponse struct {
	Data struct {
		DisplayName           string `json:"display_name"`
		Title                 string `json:"title"`
		PublicDescription     string `json:"public_description"`
		Description           string `json:"description"`
		PublicDescriptionHTML string `json:"public_description_html"`
		DescriptionHTML       string `json:"description_html"`
		Subscribers           int    `json:"subscribers"`
		RestrictPosting       bool   `json:"restrict_posting"`
		AllowImages           *bool  `json:"allow_images"`
		AllowLinks            *bool  `json:"allow_links"`
		AllowVideos           *bool  `json:"allow_videos"`
	} `json:"data"`
}

type rulesResponse struct {
	Rules []struct {
		ShortName       string `json:"short_name"`
		Description     string `json:"description"`
		DescriptionHTML string `json:"description_html"`
		ViolationReason string `json:"violation_reason"`
	} `json:"rules"`
}

// notFalse treats a missing flag as allowed.
func notFalse(b *bool) bool {
	return b == nil || *b
}

// FetchRules reads community metadata and then its rules. A metadata
// failure degrades to empty rules with FetchError set; a rules failure
// degrades to an empty rule list only. Errors are returned for invalid
// input and a cancelled context.
func (c *RedditClient) FetchRules(ctx context.Context, subreddit string) (Result[SubredditRules], error) {
	name, err := cleanSubreddit(RulesToolName, subreddit)
	if err != nil {
		return Result[SubredditRules]{}, err
	}
	start := time.Now()
	out := SubredditRules{Subreddit: name, Rules: []Rule{}}

	var about aboutResponse
	if err := c.getJSON(ctx, "/r/"+name+"/about.json", &about); err != nil {
		if ctx.Err() != nil {
			return Result[SubredditRules]{}, ctx.Err()
		}
		if status := statusOf(err); status != 0 {
			out.FetchError = fmt.Sprintf("Subreddit not found or private (HTTP %d)", status)
		} else {
			out.FetchError = fmt.Sprintf("Failed to fetch data: %v", err)
		}
		c.logger.Warn("rules tool degraded", map[string]interface{}{
			"subreddit": name,
			"reason":    out.FetchError,
		})
		return Degrade(out, out.FetchError), nil
	}

	d := about.Data
	if d.DisplayName != "" {
		out.Subreddit = d.DisplayName
	}
	out.Title = d.Title
	out.Description = firstNonEmpty(d.PublicDescription, d.Description, htmlToText(d.PublicDescriptionHTML), htmlToText(d.DescriptionHTML))
	out.Subscribers = d.Subscribers
	out.AllowedPostTypes = PostTypes{
		Text:   !d.RestrictPosting,
		Images: notFalse(d.AllowImages),
		Links:  notFalse(d.AllowLinks),
		Videos: notFalse(d.AllowVideos),
	}

	var rules rulesResponse
	if err := c.getJSON(ctx, "/r/"+name+"/about/rules.json", &rules); err != nil {
		if ctx.Err() != nil {
			return Result[SubredditRules]{}, ctx.Err()
		}
		c.logger.Warn("rules list unavailable", map[string]interface{}{
			"subreddit": name,
			"error":     err.Error(),
		})
		return Degrade(out, "rules list unavailable"), nil
	}
	for _, r := range rules.Rules {
		out.Rules = append(out.Rules, Rule{
			ShortName:       r.ShortName,
			Description:     firstNonEmpty(r.Description, htmlToText(r.DescriptionHTML), r.ViolationReason),
			ViolationReason: r.ViolationReason,
		})
	}

	c.logger.Debug("rules fetched", map[string]interface{}{
		"subreddit":   out.Subreddit,
		"rules":       len(out.Rules),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return OK(out), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
