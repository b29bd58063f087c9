package pipeline

import (
	"context"

	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/report"
	"github.com/vinayprograms/growwit/internal/session"
	"github.com/vinayprograms/growwit/internal/supervision"
	"golang.org/x/sync/errgroup"
)

// draftResult is the outcome of one writer or crafter call.
type draftResult struct {
	draft  campaign.PostDraft
	raw    string // last agent output
	parsed bool   // false when the output had no title or body
	lint   *supervision.Result
}

// draft generates a post for rec with runner, lints it and asks for
// rewrites up to the configured retry count. Agent errors are returned;
// unparseable output is reported through parsed.
func (o *Orchestrator) draft(ctx context.Context, sess *session.Session, runner Runner, prompt string, rec campaign.Recommendation) (draftResult, error) {
	text, err := runner.Generate(ctx, prompt)
	if err != nil {
		return draftResult{}, err
	}
	o.agentOutput(sess, runner.Name(), text)

	d, err := report.ParseDraft(rec.Subreddit, text)
	if err != nil {
		o.logger.Warn("draft dropped", map[string]interface{}{
			"session":   sess.ID,
			"agent":     runner.Name(),
			"subreddit": rec.Subreddit,
			"reason":    err.Error(),
		})
		sess.AddEvent(session.Event{Type: session.EventDraftDropped, Agent: runner.Name(), Subreddit: rec.Subreddit, Content: err.Error()})
		return draftResult{raw: text}, nil
	}

	lint := o.linter.Reconcile(d, rec)
	for attempt := 0; lint.Verdict == supervision.VerdictReorient && attempt < o.cfg.LintRetries; attempt++ {
		sess.AddEvent(session.Event{Type: session.EventLint, Agent: runner.Name(), Subreddit: rec.Subreddit, Triggers: lint.Triggers})
		retry, err := runner.Generate(ctx, retryPrompt(prompt, text, lint))
		if err != nil {
			return draftResult{}, err
		}
		o.agentOutput(sess, runner.Name(), retry)
		rd, err := report.ParseDraft(rec.Subreddit, retry)
		if err != nil {
			break
		}
		d, text = rd, retry
		lint = o.linter.Reconcile(d, rec)
	}

	d = supervision.Annotate(d, rec, lint)
	sess.AddEvent(session.Event{Type: session.EventDraft, Agent: runner.Name(), Subreddit: d.Subreddit, Triggers: lint.Triggers})
	return draftResult{draft: d, raw: text, parsed: true, lint: lint}, nil
}

// fanOut runs fn for 0..n-1 with at most limit calls in flight. The
// first error cancels the rest.
func (o *Orchestrator) fanOut(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
