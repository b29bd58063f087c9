package main

import (
	"fmt"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/agentkit/telemetry"
	"github.com/vinayprograms/growwit/internal/agentdef"
	"github.com/vinayprograms/growwit/internal/agents"
	"github.com/vinayprograms/growwit/internal/config"
	"github.com/vinayprograms/growwit/internal/events"
	"github.com/vinayprograms/growwit/internal/pipeline"
	"github.com/vinayprograms/growwit/internal/tools"
)

// natsConnectTimeout bounds the initial broker connection.
const natsConnectTimeout = 5 * time.Second

// runtime wires configuration into a ready orchestrator.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger

	// Components
	providers map[string]agents.Binding // one rate-limited provider per profile
	telem     telemetry.Exporter
	events    events.Publisher
	reddit    *tools.RedditClient
	registry  *tools.Registry
	agents    *agents.Registry
	pipeline  *pipeline.Orchestrator

	// Cleanup
	closers []func()
}

// loadConfig loads the config file and applies CLI overrides.
func loadConfig(cli *CLI) (*config.Config, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.Debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// newRuntime creates and sets up a runtime. Call close when done.
func newRuntime(cfg *config.Config) (*runtime, error) {
	rt := &runtime{
		cfg:       cfg,
		logger:    logging.New().WithComponent("growwit"),
		providers: make(map[string]agents.Binding),
	}
	if err := rt.setup(); err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

// setup initializes all runtime components. Returns error on failure.
func (rt *runtime) setup() error {
	if err := rt.setupTelemetry(); err != nil {
		return err
	}
	rt.setupEvents()
	rt.setupTools()
	if err := rt.setupAgents(); err != nil {
		return err
	}
	return rt.createPipeline()
}

// setupTelemetry creates the telemetry exporter.
func (rt *runtime) setupTelemetry() error {
	var err error
	if rt.cfg.Telemetry.Enabled {
		rt.telem, err = telemetry.NewExporter(rt.cfg.Telemetry.Protocol, rt.cfg.Telemetry.Endpoint)
		if err != nil {
			return fmt.Errorf("creating telemetry exporter: %w", err)
		}
	} else {
		rt.telem = telemetry.NewNoopExporter()
	}
	rt.addCloser(func() { rt.telem.Close() })
	return nil
}

// setupEvents connects the lifecycle event publisher. Events are best
// effort: an unreachable broker disables them instead of failing startup.
func (rt *runtime) setupEvents() {
	rt.events = events.Noop{}
	url := rt.cfg.Events.NATSURL
	if url == "" {
		return
	}
	pub, err := events.Connect(url, rt.cfg.Events.SubjectPrefix, natsConnectTimeout)
	if err != nil {
		rt.logger.Warn("event publishing disabled", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return
	}
	rt.events = pub
	rt.addCloser(func() { pub.Close() })
}

// setupTools creates the tool registry shared by every agent.
func (rt *runtime) setupTools() {
	search := tools.NewSearcher(tools.SearchConfig{
		Endpoint:   rt.cfg.Search.Endpoint,
		APIKey:     rt.cfg.GetSearchAPIKey(),
		MaxResults: rt.cfg.Search.MaxResults,
		Timeout:    config.Seconds(rt.cfg.Timeouts.Search),
	})
	rt.reddit = tools.NewRedditClient(tools.RedditConfig{
		BaseURL:   rt.cfg.Reddit.BaseURL,
		UserAgent: rt.cfg.Reddit.UserAgent,
		Timeout:   config.Seconds(rt.cfg.Timeouts.Reddit),
		TopLimit:  rt.cfg.Reddit.TopLimit,
	})
	rt.registry = tools.NewDefaultRegistry(search, rt.reddit)
}

// setupAgents loads the agent definitions and binds each to its profile.
func (rt *runtime) setupAgents() error {
	defs, err := agentdef.LoadSet(rt.cfg.Agents.Dir)
	if err != nil {
		return fmt.Errorf("loading agents: %w", err)
	}
	rt.agents, err = agents.Build(defs, rt.provider, rt.registry, agents.WithDebug(rt.cfg.Debug))
	if err != nil {
		return fmt.Errorf("building agents: %w", err)
	}
	return nil
}

// provider returns the binding for a profile, creating it on first use.
func (rt *runtime) provider(profile string) (agents.Binding, error) {
	if b, ok := rt.providers[profile]; ok {
		return b, nil
	}
	llmCfg := rt.cfg.GetProfile(profile)
	providerName := llmCfg.Provider
	if providerName == "" {
		providerName = llm.InferProviderFromModel(llmCfg.Model)
	}
	if providerName == "" && llmCfg.Model == "" {
		return agents.Binding{}, fmt.Errorf("profile %s: no provider or model configured", profile)
	}
	p, err := llm.NewProvider(llm.ProviderConfig{
		Provider:    providerName,
		Model:       llmCfg.Model,
		APIKey:      rt.cfg.GetProfileAPIKey(profile, globalCreds),
		MaxTokens:   llmCfg.MaxTokens,
		BaseURL:     llmCfg.BaseURL,
		RetryConfig: parseRetryConfig(llmCfg.MaxRetries, llmCfg.RetryBackoff),
	})
	if err != nil {
		return agents.Binding{}, fmt.Errorf("profile %s: %w", profile, err)
	}
	b := agents.Binding{
		Provider: agents.Limit(p, llmCfg.RequestsPerMinute, config.Seconds(rt.cfg.Timeouts.LLM)),
		Name:     providerName,
	}
	rt.providers[profile] = b
	return b, nil
}

// createPipeline creates the orchestrator.
func (rt *runtime) createPipeline() error {
	set, err := pipeline.AgentsFrom(rt.agents)
	if err != nil {
		return err
	}
	rt.pipeline, err = pipeline.New(set, pipelineConfig(rt.cfg),
		pipeline.WithAnalyzer(rt.reddit),
		pipeline.WithEvents(rt.events),
	)
	return err
}

// pipelineConfig maps the [pipeline] section onto orchestrator settings.
func pipelineConfig(cfg *config.Config) pipeline.Config {
	p := cfg.Pipeline
	return pipeline.Config{
		WriterConcurrency:  p.WriterConcurrency,
		CraftConcurrency:   p.CraftConcurrency,
		Cadence:            p.Cadence,
		Finalize:           p.Finalize,
		LintRetries:        p.LintRetries,
		MaxRecommendations: p.MaxRecommendations,
		MaxCraftPosts:      p.MaxCraftPosts,
		Debug:              cfg.Debug,
	}
}

func (rt *runtime) addCloser(fn func()) {
	rt.closers = append(rt.closers, fn)
}

// close releases resources in reverse order of creation.
func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
