// Package agents binds an agent definition to a model and a tool subset and
// runs the tool-calling loop.
package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/growwit/internal/agentdef"
	"github.com/vinayprograms/growwit/internal/tools"
)

// DefaultMaxTurns bounds the model round trips of one call.
const DefaultMaxTurns = 12

// Agent is a (prompt, model, tools) unit. It holds no per-request state
// and is safe for concurrent use.
type Agent struct {
	def          *agentdef.Definition
	provider     llm.Provider
	providerName string
	tools        *tools.Registry
	toolDefs     []llm.ToolDef
	logger       *logging.Logger
	maxTurns     int
	debug        bool
}

// chatStreamer is implemented by providers that can deliver a response
// incrementally. Providers without it are driven through Chat and their
// content is forwarded once per turn.
type chatStreamer interface {
	ChatStream(ctx context.Context, req llm.ChatRequest, callback func(string)) (*llm.ChatResponse, error)
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxTurns sets the tool-loop limit.
func WithMaxTurns(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTurns = n
		}
	}
}

// WithDebug enables logging of prompts and responses.
func WithDebug(debug bool) Option {
	return func(a *Agent) { a.debug = debug }
}

// WithProviderName records the provider backing the agent's profile, as
// configured, for tracing.
func WithProviderName(name string) Option {
	return func(a *Agent) { a.providerName = name }
}

// New creates an agent. The definition's tools are resolved from reg; a
// tool missing from reg is an error.
func New(def *agentdef.Definition, provider llm.Provider, reg *tools.Registry, opts ...Option) (*Agent, error) {
	if provider == nil {
		return nil, fmt.Errorf("agent %s: no provider", def.Name)
	}
	a := &Agent{
		def:      def,
		provider: provider,
		logger:   logging.New().WithComponent("agent." + def.Name),
		maxTurns: DefaultMaxTurns,
	}
	if len(def.Tools) > 0 {
		if reg == nil {
			return nil, fmt.Errorf("agent %s: needs tools but no registry given", def.Name)
		}
		sub, err := reg.Subset(def.Tools...)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", def.Name, err)
		}
		a.tools = sub
		a.toolDefs = sub.Definitions()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Name returns the logical agent name.
func (a *Agent) Name() string { return a.def.Name }

// Generate runs the agent to completion and returns its final answer.
func (a *Agent) Generate(ctx context.Context, prompt string) (string, error) {
	return a.run(ctx, prompt, nil)
}

// Stream runs the agent and forwards text to onChunk as it is produced.
// It returns everything that was forwarded. An error from onChunk stops
// generation and is returned.
func (a *Agent) Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	if onChunk == nil {
		return a.Generate(ctx, prompt)
	}
	return a.run(ctx, prompt, onChunk)
}

func (a *Agent) run(ctx context.Context, prompt string, onChunk func(string) error) (output string, err error) {
	start := time.Now()
	ctx, span := a.startAgentSpan(ctx, onChunk != nil)
	defer func() { a.endAgentSpan(span, output, err) }()

	messages := []llm.Message{
		{Role: "system", Content: a.def.Prompt},
		{Role: "user", Content: prompt},
	}
	if a.debug {
		a.logger.Debug("prompt", map[string]interface{}{"content": prompt})
	}

	var streamed strings.Builder
	toolCalls := 0

	for turn := 0; turn < a.maxTurns; turn++ {
		llmStart := time.Now()
		resp, sent, err := a.chat(ctx, messages, onChunk, &streamed)
		if err != nil {
			a.logger.Warn("agent call failed", map[string]interface{}{
				"turn":  turn,
				"error": err.Error(),
			})
			return streamed.String(), err
		}
		a.logger.Debug("model turn", map[string]interface{}{
			"turn":        turn,
			"tool_calls":  len(resp.ToolCalls),
			"duration_ms": time.Since(llmStart).Milliseconds(),
		})

		// No tool calls = agent complete
		if len(resp.ToolCalls) == 0 {
			if onChunk != nil && !sent && resp.Content != "" {
				if err := emit(onChunk, &streamed, resp.Content); err != nil {
					return streamed.String(), err
				}
			}
			if a.debug {
				a.logger.Debug("response", map[string]interface{}{"content": resp.Content})
			}
			a.logger.Info("agent complete", map[string]interface{}{
				"turns":       turn + 1,
				"tool_calls":  toolCalls,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if onChunk != nil {
				return streamed.String(), nil
			}
			return resp.Content, nil
		}

		toolCalls += len(resp.ToolCalls)
		if onChunk != nil && !sent && resp.Content != "" {
			if err := emit(onChunk, &streamed, resp.Content); err != nil {
				return streamed.String(), err
			}
		}

		// Add assistant message with tool calls
		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		toolMessages, err := a.executeToolsParallel(ctx, resp.ToolCalls)
		if err != nil {
			return streamed.String(), err
		}
		messages = append(messages, toolMessages...)
	}
	return streamed.String(), fmt.Errorf("agent %s: no answer after %d turns", a.def.Name, a.maxTurns)
}

// chat runs one model turn. When streaming it reports whether any text of
// this turn was forwarded; a provider without ChatStream forwards nothing
// here and run emits the turn's content instead.
func (a *Agent) chat(ctx context.Context, messages []llm.Message, onChunk func(string) error, streamed *strings.Builder) (*llm.ChatResponse, bool, error) {
	req := llm.ChatRequest{Messages: messages, Tools: a.toolDefs}
	streamer, ok := a.provider.(chatStreamer)
	if onChunk == nil || !ok {
		resp, err := a.provider.Chat(ctx, req)
		if err != nil {
			return nil, false, fmt.Errorf("LLM error: %w", err)
		}
		return resp, false, nil
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeErr error
	sent := false
	resp, err := streamer.ChatStream(streamCtx, req, func(chunk string) {
		if writeErr != nil || chunk == "" {
			return
		}
		if werr := emit(onChunk, streamed, chunk); werr != nil {
			writeErr = werr
			cancel()
			return
		}
		sent = true
	})
	if writeErr != nil {
		return nil, sent, writeErr
	}
	if err != nil {
		return nil, sent, fmt.Errorf("LLM error: %w", err)
	}
	return resp, sent, nil
}

func emit(onChunk func(string) error, streamed *strings.Builder, chunk string) error {
	if err := onChunk(chunk); err != nil {
		return err
	}
	streamed.WriteString(chunk)
	return nil
}
