package agents

import (
	"fmt"
	"sort"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/growwit/internal/agentdef"
	"github.com/vinayprograms/growwit/internal/tools"
)

// Binding is the provider bound to a model profile and the configured
// provider name behind it.
type Binding struct {
	Provider llm.Provider
	Name     string
}

// ProviderFunc returns the binding for a model profile.
type ProviderFunc func(profile string) (Binding, error)

// Registry resolves agents by logical name.
type Registry struct {
	agents map[string]*Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Build creates one agent per definition. Each agent gets the provider of
// its profile and the subset of reg its definition names.
func Build(defs agentdef.Set, providers ProviderFunc, reg *tools.Registry, opts ...Option) (*Registry, error) {
	r := NewRegistry()
	for _, name := range defs.Names() {
		def := defs[name]
		b, err := providers(def.Profile)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		agentOpts := append([]Option{WithProviderName(b.Name)}, opts...)
		a, err := New(def, b.Provider, reg, agentOpts...)
		if err != nil {
			return nil, err
		}
		r.Register(a)
	}
	return r, nil
}

// Register adds an agent.
func (r *Registry) Register(a *Agent) {
	r.agents[a.Name()] = a
}

// Get returns an agent by name.
func (r *Registry) Get(name string) (*Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent %q not registered", name)
	}
	return a, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
