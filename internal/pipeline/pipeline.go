// Package pipeline runs the two generation passes: the streamed
// strategy-and-drafts pass and the bulk crafting pass.
//
// A campaign pass moves through a fixed sequence of stages:
//
//	ANALYZE -> STRATEGIZE -> CADENCE -> WRITE -> FINALIZE
//
// Every stage writes progress into the same stream as the final report.
// Only the complete text is guaranteed to parse; partial text is
// progress narration. A failing agent call fails the whole pass.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/growwit/internal/agentdef"
	"github.com/vinayprograms/growwit/internal/agents"
	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/events"
	"github.com/vinayprograms/growwit/internal/report"
	"github.com/vinayprograms/growwit/internal/session"
	"github.com/vinayprograms/growwit/internal/supervision"
	"github.com/vinayprograms/growwit/internal/tools"
)

// Runner is the agent capability the pipeline drives.
type Runner interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error)
}

// AgentSet holds the agents of both passes by role.
type AgentSet struct {
	Strategist Runner
	Writer     Runner
	Cadence    Runner // optional; the analyzer alone fills the schedule without it
	Finalizer  Runner // used when Config.Finalize is FinalizeAgent
	Crafter    Runner
}

// AgentsFrom resolves the set from an agent registry. Missing optional
// agents are left nil.
func AgentsFrom(reg *agents.Registry) (AgentSet, error) {
	var set AgentSet
	required := []struct {
		name string
		dst  *Runner
	}{
		{agentdef.Strategist, &set.Strategist},
		{agentdef.Writer, &set.Writer},
		{agentdef.Crafter, &set.Crafter},
	}
	for _, r := range required {
		a, err := reg.Get(r.name)
		if err != nil {
			return AgentSet{}, err
		}
		*r.dst = a
	}
	if a, err := reg.Get(agentdef.Cadence); err == nil {
		set.Cadence = a
	}
	if a, err := reg.Get(agentdef.Finalizer); err == nil {
		set.Finalizer = a
	}
	return set, nil
}

// Analyzer measures posting windows from a community's top posts.
type Analyzer interface {
	AnalyzeSubreddit(ctx context.Context, subreddit string) (tools.Result[tools.PostTimeAnalysis], error)
}

// Finalize modes.
const (
	FinalizeRender = "render" // the report is rendered from parsed data
	FinalizeAgent  = "agent"  // the finalizer agent compiles the report
)

// Config tunes both passes.
type Config struct {
	WriterConcurrency  int
	CraftConcurrency   int
	Cadence            bool
	Finalize           string
	LintRetries        int
	MaxRecommendations int
	MaxCraftPosts      int
	Debug              bool
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		WriterConcurrency:  3,
		CraftConcurrency:   3,
		Cadence:            true,
		Finalize:           FinalizeRender,
		LintRetries:        1,
		MaxRecommendations: 10,
		MaxCraftPosts:      20,
	}
}

// Orchestrator runs generation passes. It holds no per-request state and
// is safe for concurrent use.
type Orchestrator struct {
	agents   AgentSet
	analyzer Analyzer
	linter   *supervision.Linter
	events   events.Publisher
	cfg      Config
	now      func() time.Time
	logger   *logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAnalyzer sets the analyzer used to fill missing schedule windows.
func WithAnalyzer(a Analyzer) Option {
	return func(o *Orchestrator) { o.analyzer = a }
}

// WithEvents sets the lifecycle event publisher.
func WithEvents(p events.Publisher) Option {
	return func(o *Orchestrator) { o.events = p }
}

// WithClock sets the time source for schedules and dates.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLinter replaces the default draft linter.
func WithLinter(l *supervision.Linter) Option {
	return func(o *Orchestrator) { o.linter = l }
}

// New creates an orchestrator. Zero config values take their defaults.
func New(set AgentSet, cfg Config, opts ...Option) (*Orchestrator, error) {
	if set.Strategist == nil || set.Writer == nil {
		return nil, fmt.Errorf("pipeline: strategist and writer agents are required")
	}
	def := DefaultConfig()
	if cfg.WriterConcurrency <= 0 {
		cfg.WriterConcurrency = def.WriterConcurrency
	}
	if cfg.CraftConcurrency <= 0 {
		cfg.CraftConcurrency = def.CraftConcurrency
	}
	if cfg.Finalize == "" {
		cfg.Finalize = def.Finalize
	}
	if cfg.Finalize != FinalizeRender && cfg.Finalize != FinalizeAgent {
		return nil, fmt.Errorf("pipeline: unknown finalize mode %q", cfg.Finalize)
	}
	if cfg.Finalize == FinalizeAgent && set.Finalizer == nil {
		return nil, fmt.Errorf("pipeline: finalize mode %q needs the %s agent", FinalizeAgent, agentdef.Finalizer)
	}
	if cfg.LintRetries < 0 {
		cfg.LintRetries = 0
	}
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = def.MaxRecommendations
	}
	if cfg.MaxCraftPosts <= 0 {
		cfg.MaxCraftPosts = def.MaxCraftPosts
	}

	o := &Orchestrator{
		agents: set,
		cfg:    cfg,
		now:    time.Now,
		logger: logging.New().WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.linter == nil {
		o.linter = supervision.New()
	}
	if o.events == nil {
		o.events = events.Noop{}
	}
	return o, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Result describes a finished or failed campaign pass.
type Result struct {
	Session *session.Session
	Report  *campaign.Report
	Dropped []report.DropReason
	Step    int // last progress step written to the stream
}

// publish sends a lifecycle event. Failures are logged, never returned.
func (o *Orchestrator) publish(ctx context.Context, eventType string, sess *session.Session, data interface{}) {
	err := o.events.Publish(context.WithoutCancel(ctx), events.Event{
		Type:      eventType,
		SessionID: sess.ID,
		Data:      data,
	})
	if err != nil {
		o.logger.Warn("event not published", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

// logDrops records parser drops in the log and the session.
func (o *Orchestrator) logDrops(sess *session.Session, stage string, drops []report.DropReason) {
	for _, d := range drops {
		o.logger.Warn("block dropped", map[string]interface{}{
			"session":   sess.ID,
			"stage":     stage,
			"line":      d.Line,
			"subreddit": d.Subreddit,
			"reason":    d.Reason,
		})
		sess.AddEvent(session.Event{
			Type:      session.EventDraftDropped,
			Stage:     stage,
			Subreddit: d.Subreddit,
			Content:   d.Reason,
		})
	}
}
