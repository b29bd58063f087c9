package tools

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// memoSize bounds the responses kept for one request.
const memoSize = 128

type memoKey struct{}

// Memo deduplicates identical upstream fetches made while serving one
// request, e.g. the strategist and the cadence agent asking about the
// same community. It is never shared between requests.
type Memo struct {
	cache *lru.Cache[string, []byte]
	group singleflight.Group
}

// NewMemo creates an empty memo.
func NewMemo() *Memo {
	cache, _ := lru.New[string, []byte](memoSize)
	return &Memo{cache: cache}
}

// WithMemo attaches a fresh memo to ctx.
func WithMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoKey{}, NewMemo())
}

// MemoFrom returns the memo attached to ctx, or nil.
func MemoFrom(ctx context.Context) *Memo {
	m, _ := ctx.Value(memoKey{}).(*Memo)
	return m
}

// Do returns the cached body for key or runs fetch once, sharing the
// result with concurrent callers. Failures are not cached.
func (m *Memo) Do(key string, fetch func() ([]byte, error)) ([]byte, error) {
	if body, ok := m.cache.Get(key); ok {
		return body, nil
	}
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		body, err := fetch()
		if err != nil {
			return nil, err
		}
		m.cache.Add(key, body)
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Len returns the number of cached responses.
func (m *Memo) Len() int {
	return m.cache.Len()
}
