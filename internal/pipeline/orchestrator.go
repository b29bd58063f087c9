package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/events"
	"github.com/vinayprograms/growwit/internal/report"
	"github.com/vinayprograms/growwit/internal/session"
	"github.com/vinayprograms/growwit/internal/tools"
)

// Stage names.
const (
	StageAnalyze    = "analyze"
	StageStrategize = "strategize"
	StageCadence    = "cadence"
	StageWrite      = "write"
	StageFinalize   = "finalize"
)

// Pass errors.
var (
	ErrNoRecommendations = errors.New("strategist produced no usable recommendations")
	ErrNoDrafts          = errors.New("writer produced no usable drafts")
)

// campaignRun is the state of one campaign pass.
type campaignRun struct {
	req    campaign.Request
	out    *output
	sess   *session.Session
	report *campaign.Report
	drops  []report.DropReason
}

type stage struct {
	name string
	fn   func(ctx context.Context, r *campaignRun) error
}

// Run executes a campaign pass and streams it to w. The returned Result
// is non-nil whenever the request was valid, also on failure.
func (o *Orchestrator) Run(ctx context.Context, req campaign.Request, w io.Writer) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sess := session.New(session.KindCampaign, req.ProductName)
	res := &Result{Session: sess}

	ctx = tools.WithMemo(ctx)
	ctx, span := startRunSpan(ctx, sess)
	o.logger.Info("campaign started", map[string]interface{}{
		"session": sess.ID,
		"product": req.ProductName,
		"goal":    req.UserGoal,
	})
	o.publish(ctx, events.CampaignStarted, sess, map[string]string{"product": req.ProductName})

	r := &campaignRun{req: req, out: newOutput(w, sess), sess: sess, report: &campaign.Report{}}
	err := o.runStages(ctx, r, o.stages())
	res.Step = r.out.Step()
	res.Dropped = r.drops
	endRunSpan(span, sess, err)

	fields := map[string]interface{}{
		"session":     sess.ID,
		"duration_ms": sess.Duration().Milliseconds(),
		"bytes":       sess.Bytes(),
	}
	if err != nil {
		sess.Fail(err)
		fields["error"] = err.Error()
		o.logger.Error("campaign failed", fields)
		o.publish(ctx, events.CampaignFailed, sess, map[string]string{"error": err.Error()})
		return res, err
	}
	sess.Complete()
	res.Report = r.report
	fields["posts"] = len(r.report.Posts)
	o.logger.Info("campaign complete", fields)
	o.publish(ctx, events.CampaignCompleted, sess, map[string]int{"posts": len(r.report.Posts)})
	return res, nil
}

func (o *Orchestrator) stages() []stage {
	stages := []stage{
		{StageAnalyze, o.analyze},
		{StageStrategize, o.strategize},
	}
	if o.cfg.Cadence {
		stages = append(stages, stage{StageCadence, o.cadence})
	}
	return append(stages,
		stage{StageWrite, o.write},
		stage{StageFinalize, o.finalize},
	)
}

func (o *Orchestrator) runStages(ctx context.Context, r *campaignRun, stages []stage) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		r.sess.AddEvent(session.Event{Type: session.EventStageStart, Stage: st.name})
		o.logger.Info("stage start", map[string]interface{}{"session": r.sess.ID, "stage": st.name})

		stageCtx, span := startStageSpan(ctx, st.name)
		err := st.fn(stageCtx, r)
		endStageSpan(span, err)

		ev := session.Event{Type: session.EventStageEnd, Stage: st.name, DurationMs: time.Since(start).Milliseconds()}
		if err != nil {
			ev.Error = err.Error()
		}
		r.sess.AddEvent(ev)
		o.logger.Info("stage end", map[string]interface{}{
			"session":     r.sess.ID,
			"stage":       st.name,
			"duration_ms": ev.DurationMs,
			"ok":          err == nil,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
		o.publish(ctx, events.StageCompleted, r.sess, map[string]interface{}{
			"stage":       st.name,
			"duration_ms": ev.DurationMs,
		})
	}
	return nil
}

func (o *Orchestrator) analyze(ctx context.Context, r *campaignRun) error {
	return r.out.printf("%s\n### 🔍 ANALYZING PRODUCT: %s\nGoal: %s\n\n",
		report.StepMarker(1), r.req.ProductName, goalLine(r.req.UserGoal))
}

func (o *Orchestrator) strategize(ctx context.Context, r *campaignRun) error {
	text, err := o.agents.Strategist.Stream(ctx, strategistPrompt(r.req, o.cfg.MaxRecommendations), r.out.write)
	if err != nil {
		return err
	}
	o.agentOutput(r.sess, o.agents.Strategist.Name(), text)

	recs, drops := report.ParseRecommendations(text)
	o.logDrops(r.sess, StageStrategize, drops)
	r.drops = append(r.drops, drops...)
	if len(recs) == 0 {
		return ErrNoRecommendations
	}
	if len(recs) > o.cfg.MaxRecommendations {
		recs = recs[:o.cfg.MaxRecommendations]
	}
	r.report.StrategyText = text
	r.report.Recommendations = recs

	names := make([]string, len(recs))
	counts := make(map[campaign.SafetyRating]int)
	for i, rec := range recs {
		names[i] = rec.Subreddit
		counts[rec.SafetyRating]++
	}
	if err := r.out.printf("\n\n%s\n### 📍 TARGETS IDENTIFIED: %s\n", report.StepMarker(2), strings.Join(names, ", ")); err != nil {
		return err
	}
	return r.out.printf("%s\n### 🛡️ RULES VERIFIED: %d Green, %d Yellow, %d Red\n",
		report.StepMarker(3), counts[campaign.SafetyGreen], counts[campaign.SafetyYellow], counts[campaign.SafetyRed])
}

// cadence fills one schedule window per recommendation. Windows the agent
// did not produce are measured with the analyzer.
func (o *Orchestrator) cadence(ctx context.Context, r *campaignRun) error {
	now := o.now()
	recs := r.report.Recommendations

	var windows []campaign.ScheduleWindow
	if o.agents.Cadence != nil {
		text, err := o.agents.Cadence.Generate(ctx, cadencePrompt(recs, now))
		if err != nil {
			return err
		}
		o.agentOutput(r.sess, o.agents.Cadence.Name(), text)
		var drops []report.DropReason
		windows, drops = report.ParseSchedule(text)
		o.logDrops(r.sess, StageCadence, drops)
		r.drops = append(r.drops, drops...)
		r.report.ScheduleText = text
	}

	byKey := make(map[string]campaign.ScheduleWindow, len(windows))
	for _, w := range windows {
		byKey[campaign.SubredditKey(w.Subreddit)] = w
	}
	schedule := make([]campaign.ScheduleWindow, 0, len(recs))
	for _, rec := range recs {
		w, ok := byKey[campaign.SubredditKey(rec.Subreddit)]
		if !ok {
			var err error
			if w, err = o.measure(ctx, r.sess, rec.Subreddit, now); err != nil {
				return err
			}
		}
		w.Subreddit = rec.Subreddit
		schedule = append(schedule, w)
	}
	r.report.Schedule = schedule

	if err := r.out.write("\n### ⏱️ POSTING WINDOWS MEASURED\n"); err != nil {
		return err
	}
	for _, w := range schedule {
		if err := r.out.printf("- %s: %s\n", w.Subreddit, w.Optimal()); err != nil {
			return err
		}
	}
	return nil
}

// measure asks the analyzer for a window. Without an analyzer the
// fallback heuristic is used.
func (o *Orchestrator) measure(ctx context.Context, sess *session.Session, subreddit string, now time.Time) (campaign.ScheduleWindow, error) {
	if o.analyzer == nil {
		return tools.FallbackAnalysis(subreddit).ScheduleWindow(now), nil
	}
	res, err := o.analyzer.AnalyzeSubreddit(ctx, subreddit)
	if err != nil {
		if ctx.Err() != nil {
			return campaign.ScheduleWindow{}, err
		}
		o.logger.Warn("analyzer failed, using fallback", map[string]interface{}{
			"subreddit": subreddit,
			"error":     err.Error(),
		})
		res = tools.Degrade(tools.FallbackAnalysis(subreddit), err.Error())
	}
	if res.Degraded {
		sess.AddEvent(session.Event{Type: session.EventDegraded, Stage: StageCadence, Subreddit: subreddit, Content: res.Reason})
	}
	return res.Value.ScheduleWindow(now), nil
}

func (o *Orchestrator) write(ctx context.Context, r *campaignRun) error {
	recs := r.report.Recommendations
	if err := r.out.printf("\n%s\n### ✍️ DRAFTING %d POSTS\n", report.StepMarker(4), len(recs)); err != nil {
		return err
	}

	results := make([]draftResult, len(recs))
	q := newOrdered(len(recs), func(i int) error {
		res := results[i]
		if !res.parsed {
			return r.out.printf("- ⚠️ %s: draft unusable, skipped\n", recs[i].Subreddit)
		}
		return r.out.printf("- ✅ %s: %s\n", recs[i].Subreddit, res.draft.Title)
	})

	err := o.fanOut(ctx, len(recs), o.cfg.WriterConcurrency, func(ctx context.Context, i int) error {
		res, err := o.draft(ctx, r.sess, o.agents.Writer, writerPrompt(r.req, recs[i]), recs[i])
		if err != nil {
			return err
		}
		results[i] = res
		return q.complete(i)
	})
	if err != nil {
		return err
	}

	for _, res := range results {
		if res.parsed {
			r.report.Posts = append(r.report.Posts, res.draft)
		}
	}
	if len(r.report.Posts) == 0 {
		return ErrNoDrafts
	}
	return nil
}

func (o *Orchestrator) finalize(ctx context.Context, r *campaignRun) error {
	if err := r.out.printf("\n%s\n### 📦 CAMPAIGN COMPILED\n\n", report.StepMarker(5)); err != nil {
		return err
	}
	if o.cfg.Finalize != FinalizeAgent {
		return report.Render(r.out, r.report)
	}

	text, err := o.agents.Finalizer.Stream(ctx, finalizerPrompt(r.report), r.out.write)
	if err != nil {
		return err
	}
	o.agentOutput(r.sess, o.agents.Finalizer.Name(), text)
	parsed, drops := report.Parse(text)
	o.logDrops(r.sess, StageFinalize, drops)
	r.drops = append(r.drops, drops...)
	if len(parsed.Posts) < len(r.report.Posts) {
		o.logger.Warn("finalizer lost drafts", map[string]interface{}{
			"session":  r.sess.ID,
			"drafts":   len(r.report.Posts),
			"compiled": len(parsed.Posts),
		})
	}
	return nil
}

// agentOutput records an agent's full output. Content is kept only in
// debug mode.
func (o *Orchestrator) agentOutput(sess *session.Session, agent, text string) {
	ev := session.Event{Type: session.EventAgentOutput, Agent: agent}
	if o.cfg.Debug {
		ev.Content = text
	}
	sess.AddEvent(ev)
}
