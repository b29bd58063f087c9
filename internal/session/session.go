// Package session records one generation request while it runs: its
// status, an ordered event log and the text streamed to the client.
// Sessions live in memory only.
package session

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Kind names the request a session belongs to.
type Kind string

const (
	KindCampaign Kind = "campaign"
	KindCraft    Kind = "craft"
)

// Status constants for sessions.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Event types for the session log.
const (
	EventStageStart   = "stage_start"
	EventStageEnd     = "stage_end"
	EventAgentOutput  = "agent_output"
	EventDegraded     = "degraded"      // a tool fell back to defaults
	EventDraft        = "draft"         // a writer draft was accepted
	EventDraftDropped = "draft_dropped" // a writer output could not be parsed
	EventLint         = "lint"          // the linter asked for a rewrite
	EventError        = "error"
)

// Session is one request's execution record.
type Session struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Product   string    `json:"product"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Events    []Event   `json:"events"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	seqCounter uint64
	text       strings.Builder
	mu         sync.Mutex
}

// Event is a single entry in the session log.
type Event struct {
	SeqID     uint64    `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Stage     string `json:"stage,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Subreddit string `json:"subreddit,omitempty"`

	Content    string   `json:"content,omitempty"`
	Error      string   `json:"error,omitempty"`
	Triggers   []string `json:"triggers,omitempty"`
	DurationMs int64    `json:"duration_ms,omitempty"`
}

// New starts a running session.
func New(kind Kind, product string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Kind:      kind,
		Product:   product,
		Status:    StatusRunning,
		Events:    []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) nextSeqID() uint64 {
	return atomic.AddUint64(&s.seqCounter, 1)
}

// CurrentSeqID returns the last used sequence id, 0 before any event.
func (s *Session) CurrentSeqID() uint64 {
	return atomic.LoadUint64(&s.seqCounter)
}

// AddEvent appends an event with the next sequence id.
func (s *Session) AddEvent(event Event) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.SeqID = s.nextSeqID()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.Events = append(s.Events, event)
	s.UpdatedAt = time.Now()
	return event.SeqID
}

// Append records text written to the client.
func (s *Session) Append(chunk string) {
	s.mu.Lock()
	s.text.WriteString(chunk)
	s.mu.Unlock()
}

// Text returns everything written to the client so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Bytes returns the number of bytes written to the client so far.
func (s *Session) Bytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.Len()
}

// Snapshot returns a copy of the event log.
func (s *Session) Snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.Events))
	copy(out, s.Events)
	return out
}

// Count returns how many events of the given type were recorded.
func (s *Session) Count(eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.Events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// Complete marks the session finished.
func (s *Session) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusComplete
	s.UpdatedAt = time.Now()
}

// Fail marks the session failed and logs the error as an event.
func (s *Session) Fail(err error) {
	s.AddEvent(Event{Type: EventError, Error: err.Error()})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusFailed
	s.Error = err.Error()
}

// Duration is the time since the session started.
func (s *Session) Duration() time.Duration {
	return time.Since(s.CreatedAt)
}
