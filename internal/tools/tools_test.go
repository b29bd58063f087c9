package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	reg := NewDefaultRegistry(NewSearcher(SearchConfig{}), NewRedditClient(RedditConfig{}))
	want := []string{AnalyzerToolName, RulesToolName, SearchToolName}
	names := reg.Names()
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
	defs := reg.Definitions()
	if len(defs) != 3 {
		t.Fatalf("definitions = %d", len(defs))
	}
	for _, d := range defs {
		if d.Description == "" || d.Parameters["type"] != "object" {
			t.Errorf("definition %s incomplete", d.Name)
		}
	}
}

func TestRegistry_Subset(t *testing.T) {
	reg := NewDefaultRegistry(NewSearcher(SearchConfig{}), NewRedditClient(RedditConfig{}))
	sub, err := reg.Subset(SearchToolName, RulesToolName)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Has(AnalyzerToolName) || !sub.Has(SearchToolName) {
		t.Errorf("subset names = %v", sub.Names())
	}
	if _, err := reg.Subset("web_fetch"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("unknown tool should be a configuration error, got %v", err)
	}
}

func TestToolExecute_MissingArgument(t *testing.T) {
	reg := NewDefaultRegistry(NewSearcher(SearchConfig{APIKey: "k"}), NewRedditClient(RedditConfig{}))
	for _, name := range reg.Names() {
		_, err := reg.Get(name).Execute(context.Background(), map[string]interface{}{})
		if !errors.Is(err, ErrInput) {
			t.Errorf("%s: expected input error, got %v", name, err)
		}
	}
}

func TestAnalyzerTool_NeverFailsOnUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	reg := NewDefaultRegistry(NewSearcher(SearchConfig{}), NewRedditClient(RedditConfig{BaseURL: srv.URL}))
	out, err := reg.Get(AnalyzerToolName).Execute(context.Background(), map[string]interface{}{"subreddit": "r/x"})
	if err != nil {
		t.Fatal(err)
	}
	a, ok := out.(PostTimeAnalysis)
	if !ok || a.PeakDay != FallbackPeakDay {
		t.Errorf("output = %#v", out)
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: KindUpstream, Tool: SearchToolName, Message: "search API error", Status: 500, Body: "oops"}
	if got := err.Error(); got != "search-tool: search API error (HTTP 500): oops" {
		t.Errorf("Error() = %q", got)
	}
	if errors.Is(err, ErrSearchTimeout) {
		t.Error("upstream error must not match timeout sentinel")
	}
}
