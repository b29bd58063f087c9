package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/events"
	"github.com/vinayprograms/growwit/internal/report"
	"github.com/vinayprograms/growwit/internal/session"
	"github.com/vinayprograms/growwit/internal/tools"
)

// CraftResult describes a finished or failed crafting pass.
type CraftResult struct {
	Session *session.Session
	Posts   []campaign.PostDraft // parsed posts in stream order
	Actions []campaign.Action    // pending post actions for the parsed posts
	Framed  int                  // posts written to the stream, parsed or not
}

// Craft writes min(postsPerMonth, MaxCraftPosts) posts for the strategy in
// req.AIOutput and streams each one framed by report.EncodeCraftedPost.
// Communities are assigned round-robin in strategy order.
func (o *Orchestrator) Craft(ctx context.Context, req campaign.CraftRequest, w io.Writer) (*CraftResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if o.agents.Crafter == nil {
		return nil, fmt.Errorf("pipeline: crafter agent is not configured")
	}
	sess := session.New(session.KindCraft, req.ProductName)
	res := &CraftResult{Session: sess}

	ctx = tools.WithMemo(ctx)
	ctx, span := startRunSpan(ctx, sess)

	targets := craftTargets(req)
	n := int(req.PostsPerMonth)
	if n > o.cfg.MaxCraftPosts {
		n = o.cfg.MaxCraftPosts
	}
	now := o.now()
	dates := report.ScheduleDates(now, n)

	o.logger.Info("craft started", map[string]interface{}{
		"session":     sess.ID,
		"product":     req.ProductName,
		"posts":       n,
		"communities": len(targets),
	})
	o.publish(ctx, events.CraftStarted, sess, map[string]int{"posts": n})

	out := newOutput(w, sess)
	results := make([]draftResult, n)
	q := newOrdered(n, func(i int) error {
		r := results[i]
		rec := targets[i%len(targets)]
		payload := r.raw
		if r.parsed {
			payload = report.FormatDraft(r.draft)
		}
		res.Framed++
		return report.EncodeCraftedPost(out, rec.Subreddit, payload)
	})

	err := o.fanOut(ctx, n, o.cfg.CraftConcurrency, func(ctx context.Context, i int) error {
		rec := targets[i%len(targets)]
		r, err := o.draft(ctx, sess, o.agents.Crafter, crafterPrompt(req, rec, i+1, n, dates[i]), rec)
		if err != nil {
			return err
		}
		results[i] = r
		return q.complete(i)
	})
	endRunSpan(span, sess, err)

	fields := map[string]interface{}{
		"session":     sess.ID,
		"duration_ms": sess.Duration().Milliseconds(),
		"bytes":       sess.Bytes(),
		"framed":      res.Framed,
	}
	if err != nil {
		sess.Fail(err)
		fields["error"] = err.Error()
		o.logger.Error("craft failed", fields)
		o.publish(ctx, events.CraftFailed, sess, map[string]string{"error": err.Error()})
		return res, err
	}

	for _, r := range results {
		if r.parsed {
			res.Posts = append(res.Posts, r.draft)
		}
	}
	res.Actions = report.BuildActions(res.Posts, sess.ID, "", now)
	sess.Complete()
	o.logger.Info("craft complete", fields)
	o.publish(ctx, events.CraftCompleted, sess, map[string]int{"posts": res.Framed, "parsed": len(res.Posts)})
	return res, nil
}

// craftTargets recovers the communities of a strategy. Strategist blocks
// win; a compiled report is the next source; with neither, the default
// community is used.
func craftTargets(req campaign.CraftRequest) []campaign.Recommendation {
	if recs, _ := report.ParseRecommendations(req.AIOutput); len(recs) > 0 {
		return recs
	}

	rep, _ := report.Parse(req.AIOutput)
	if len(rep.Recommendations) > 0 {
		return rep.Recommendations
	}
	var recs []campaign.Recommendation
	seen := make(map[string]bool)
	add := func(sub, framing string) {
		key := campaign.SubredditKey(sub)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		recs = append(recs, campaign.Recommendation{
			Subreddit:       campaign.NormalizeSubreddit(sub),
			Product:         req.ProductName,
			FramingStrategy: framing,
			SafetyRating:    campaign.SafetyYellow,
		})
	}
	for _, t := range rep.Targets {
		add(t.Subreddit, t.Framing)
	}
	for _, p := range rep.Posts {
		add(p.Subreddit, "")
	}
	if len(recs) == 0 {
		add(report.DefaultCraftSubreddit, "")
	}
	return recs
}
