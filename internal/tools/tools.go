// Package tools provides the tool registry and the campaign research tools:
// web search, subreddit rules and the top-post time analyzer.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vinayprograms/agentkit/llm"
)

// Tool names as exposed to the models.
const (
	SearchToolName   = "search-tool"
	RulesToolName    = "reddit-rules-tool"
	AnalyzerToolName = "reddit-post-analyzer"
)

// Tool represents an executable tool.
type Tool interface {
	// Name returns the tool name.
	Name() string
	// Description returns a description for the LLM.
	Description() string
	// Parameters returns the JSON schema for parameters.
	Parameters() map[string]interface{}
	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Registry holds registered tools. It is read-only once the server starts.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// NewDefaultRegistry registers the three research tools.
func NewDefaultRegistry(search *Searcher, reddit *RedditClient) *Registry {
	r := NewRegistry()
	r.Register(&searchTool{searcher: search})
	r.Register(&rulesTool{client: reddit})
	r.Register(&analyzerTool{client: reddit})
	return r
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subset returns a registry holding only the named tools. Asking for an
// unknown tool is a configuration error.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	sub := NewRegistry()
	for _, name := range names {
		t := r.Get(name)
		if t == nil {
			return nil, &Error{Kind: KindConfiguration, Tool: name, Message: "tool not registered"}
		}
		sub.Register(t)
	}
	return sub, nil
}

// Definitions returns LLM-facing definitions in name order.
func (r *Registry) Definitions() []llm.ToolDef {
	var defs []llm.ToolDef
	for _, name := range r.Names() {
		t := r.Get(name)
		defs = append(defs, llm.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// stringArg reads a required, non-empty string argument.
func stringArg(tool string, args map[string]interface{}, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", &Error{Kind: KindInput, Tool: tool, Message: fmt.Sprintf("%s is required", key)}
	}
	return v, nil
}

// subredditParams is the schema shared by the two Reddit tools.
func subredditParams() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"subreddit": map[string]interface{}{
				"type":        "string",
				"description": "The subreddit name (without r/ prefix, e.g. 'SideProject')",
			},
		},
		"required": []string{"subreddit"},
	}
}

// --- Tool adapters ---

type searchTool struct {
	searcher *Searcher
}

func (t *searchTool) Name() string { return SearchToolName }

func (t *searchTool) Description() string {
	return "Search the web for real-time information. Returns up to 5 results with title, url and content."
}

func (t *searchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query to look up on the web",
			},
		},
		"required": []string{"query"},
	}
}

func (t *searchTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, err := stringArg(t.Name(), args, "query")
	if err != nil {
		return nil, err
	}
	res, err := t.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"results": res.Value}, nil
}

type rulesTool struct {
	client *RedditClient
}

func (t *rulesTool) Name() string { return RulesToolName }

func (t *rulesTool) Description() string {
	return "Fetch the actual rules, description, and allowed post types for a subreddit directly from Reddit."
}

func (t *rulesTool) Parameters() map[string]interface{} { return subredditParams() }

func (t *rulesTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sub, err := stringArg(t.Name(), args, "subreddit")
	if err != nil {
		return nil, err
	}
	res, err := t.client.FetchRules(ctx, sub)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

type analyzerTool struct {
	client *RedditClient
}

func (t *analyzerTool) Name() string { return AnalyzerToolName }

func (t *analyzerTool) Description() string {
	return "Analyze the top 100 posts of the past month in a subreddit to find the optimal posting windows (UTC)."
}

func (t *analyzerTool) Parameters() map[string]interface{} { return subredditParams() }

func (t *analyzerTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sub, err := stringArg(t.Name(), args, "subreddit")
	if err != nil {
		return nil, err
	}
	res, err := t.client.AnalyzeSubreddit(ctx, sub)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}
