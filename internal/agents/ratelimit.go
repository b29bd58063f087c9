package agents

import (
	"context"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"golang.org/x/time/rate"
)

// limitedProvider applies a request rate and a per-call deadline to a
// provider. One wrapper is shared by every agent bound to the same model
// profile, so the limit is per provider binding.
type limitedProvider struct {
	llm.Provider
	limiter *rate.Limiter
	timeout time.Duration
}

// limitedStreamer is a limitedProvider over a provider that streams.
type limitedStreamer struct {
	*limitedProvider
	streamer chatStreamer
}

// Limit wraps p. rpm <= 0 disables rate limiting; timeout <= 0 disables
// the deadline. When both are off p is returned as is. The wrapper
// offers ChatStream only when p does.
func Limit(p llm.Provider, rpm int, timeout time.Duration) llm.Provider {
	if rpm <= 0 && timeout <= 0 {
		return p
	}
	lp := &limitedProvider{Provider: p, timeout: timeout}
	if rpm > 0 {
		lp.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
	if s, ok := p.(chatStreamer); ok {
		return &limitedStreamer{limitedProvider: lp, streamer: s}
	}
	return lp
}

func (p *limitedProvider) prepare(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return ctx, nil, err
		}
	}
	if p.timeout <= 0 {
		return ctx, nil, nil
	}
	// Only add timeout if context doesn't already have a shorter deadline
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < p.timeout {
		return ctx, nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	return ctx, cancel, nil
}

func (p *limitedProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	ctx, cancel, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if cancel != nil {
		defer cancel()
	}
	return p.Provider.Chat(ctx, req)
}

func (p *limitedStreamer) ChatStream(ctx context.Context, req llm.ChatRequest, callback func(string)) (*llm.ChatResponse, error) {
	ctx, cancel, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if cancel != nil {
		defer cancel()
	}
	return p.streamer.ChatStream(ctx, req, callback)
}
