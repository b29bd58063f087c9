package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/growwit/internal/tools"
)

// toolConcurrency bounds parallel tool calls within one model turn.
const toolConcurrency = 4

// toolResult holds the result of a parallel tool execution.
type toolResult struct {
	index   int
	id      string
	content string
	fatal   error
}

func (a *Agent) executeTool(ctx context.Context, tc llm.ToolCallResponse) (interface{}, error) {
	start := time.Now()
	ctx, span := startToolSpan(ctx, tc.Name)

	var result interface{}
	var err error
	if tool := a.tools.Get(tc.Name); tool == nil {
		err = &tools.Error{Kind: tools.KindInput, Tool: tc.Name, Message: "tool not available to this agent"}
	} else {
		result, err = tool.Execute(ctx, tc.Args)
	}
	endToolSpan(span, result, err)

	fields := map[string]interface{}{
		"tool":        tc.Name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		a.logger.Warn("tool call failed", fields)
	} else {
		a.logger.Info("tool call", fields)
	}
	return result, err
}

// runTool executes one call and renders the tool message content. Only
// fatal errors are kept; the rest are shown to the model.
func (a *Agent) runTool(ctx context.Context, idx int, tc llm.ToolCallResponse) toolResult {
	result, err := a.executeTool(ctx, tc)
	r := toolResult{index: idx, id: tc.ID}
	if err != nil {
		if tools.IsFatal(err) || ctx.Err() != nil {
			r.fatal = err
			if ctx.Err() != nil {
				r.fatal = ctx.Err()
			}
		}
		r.content = fmt.Sprintf("Error: %v", err)
		return r
	}
	switch v := result.(type) {
	case string:
		r.content = v
	default:
		data, _ := json.Marshal(v)
		r.content = string(data)
	}
	return r
}

// executeToolsParallel executes tool calls concurrently and returns the
// tool messages in the original order. A fatal error aborts the call.
func (a *Agent) executeToolsParallel(ctx context.Context, toolCalls []llm.ToolCallResponse) ([]llm.Message, error) {
	if len(toolCalls) == 0 {
		return nil, nil
	}
	if a.tools == nil {
		return nil, fmt.Errorf("agent %s: model requested tools but none are bound", a.def.Name)
	}

	results := make([]toolResult, len(toolCalls))
	if len(toolCalls) == 1 {
		results[0] = a.runTool(ctx, 0, toolCalls[0])
	} else {
		sem := make(chan struct{}, toolConcurrency)
		var wg sync.WaitGroup
		for i, tc := range toolCalls {
			wg.Add(1)
			go func(idx int, tc llm.ToolCallResponse) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[idx] = a.runTool(ctx, idx, tc)
			}(i, tc)
		}
		wg.Wait()
	}

	messages := make([]llm.Message, len(toolCalls))
	for _, r := range results {
		if r.fatal != nil {
			return nil, r.fatal
		}
		messages[r.index] = llm.Message{
			Role:       "tool",
			ToolCallID: r.id,
			Content:    r.content,
		}
	}
	return messages, nil
}
