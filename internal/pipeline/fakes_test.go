package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/vinayprograms/growwit/internal/events"
	"github.com/vinayprograms/growwit/internal/tools"
)

// fakeAgent answers prompts with respond. Stream delivers the answer
// line by line.
type fakeAgent struct {
	name    string
	respond func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (f *fakeAgent) Name() string { return f.name }

func (f *fakeAgent) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.respond(ctx, prompt)
}

func (f *fakeAgent) Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	text, err := f.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		if err := onChunk(line); err != nil {
			return "", err
		}
	}
	return text, nil
}

func (f *fakeAgent) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func fixed(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return text, nil }
}

var briefSubreddit = regexp.MustCompile(`(?m)^(?:Subreddit|Community): (r/\w+)`)

// subredditOf returns the community a writer or crafter prompt is about.
func subredditOf(prompt string) string {
	if m := briefSubreddit.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return ""
}

func cleanDraft(sub string) string {
	return fmt.Sprintf(`**Title:**
How do you plan a week of meals in %s?

**Body:**
I kept throwing away groceries every week, so I built a small planner for myself.
It has helped a bit. How do you all plan the week?

**Suggested Flair:**
Discussion

**Safety Check:**
- Passed: Yes
- Warnings: None`, sub)
}

const strategyText = `Looking at meal planning communities first.

### 1. r/MealPrepSunday
📋 COPY-PASTE FOR AGENT B (Subreddit 1):
Subreddit: r/MealPrepSunday
Product: Zest AI - AI meal planner
Framing Strategy: Share a weekly prep story
Rules Constraints: No links in the body
Safety Rating: Green

📋 COPY-PASTE FOR AGENT B (Subreddit 2):
Subreddit: r/EatCheapAndHealthy
Product: Zest AI
Framing Strategy: Ask for budget feedback
Rules Constraints: Value first, mention only when asked
Safety Rating: Yellow

📋 COPY-PASTE FOR AGENT B (Subreddit 3):
Subreddit: r/Cooking
Product: Zest AI
Framing Strategy: Recipe share
Rules Constraints: None
Safety Rating: Blue

📋 COPY-PASTE FOR AGENT B (Subreddit 4):
Subreddit: r/nutrition
Product: Zest AI
Framing Strategy: Ask about macro tracking habits
Rules Constraints: No self-promotion
Safety Rating: Red
`

const cadenceText = `🕒 SCHEDULE BLOCK
Subreddit: r/MealPrepSunday
Peak Day: Sunday
Peak Hour UTC: 9
Today's Window: Not a peak day, schedule for Sunday
Success Indicator: 14 of 100 top posts landed in this window
Engagement Advice: Reply to every comment in the first hour

🕒 SCHEDULE BLOCK
Subreddit: r/EatCheapAndHealthy
Peak Day: Wednesday
Peak Hour UTC: 17
Today's Window: Not a peak day, schedule for Wednesday
Success Indicator: 9 of 100 top posts landed in this window
Engagement Advice: Answer budget questions with numbers
`

// recorder collects published event types.
type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) Publish(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == eventType {
			n++
		}
	}
	return n
}

// fakeAnalyzer always degrades to the fallback heuristic.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []string
}

func (a *fakeAnalyzer) AnalyzeSubreddit(ctx context.Context, subreddit string) (tools.Result[tools.PostTimeAnalysis], error) {
	a.mu.Lock()
	a.calls = append(a.calls, subreddit)
	a.mu.Unlock()
	return tools.Degrade(tools.FallbackAnalysis(subreddit), "no recent top posts"), nil
}

// brokenWriter accepts limit bytes and then fails.
type brokenWriter struct {
	limit int
	n     int
}

var errBrokenPipe = fmt.Errorf("broken pipe")

func (w *brokenWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		return 0, errBrokenPipe
	}
	w.n += len(p)
	return len(p), nil
}
