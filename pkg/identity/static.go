package identity

import (
	"context"
	"sync"
)

// StaticVerifier verifies tokens against a configured in-memory table of
// agents. Lookups are deterministic, making it the verifier of choice for
// tests and demo deployments.
type StaticVerifier struct {
	mu     sync.RWMutex
	agents map[string]*Agent // keyed by token
}

// NewStaticVerifier creates a static verifier from the given agents.
func NewStaticVerifier(agents []*Agent) *StaticVerifier {
	byToken := make(map[string]*Agent, len(agents))
	for _, agent := range agents {
		byToken[agent.Token] = agent
	}

	return &StaticVerifier{
		agents: byToken,
	}
}

// Verify resolves the token against the configured table.
func (v *StaticVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, NewAuthenticationError("empty token", nil)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	agent, ok := v.agents[token]
	if !ok {
		return nil, NewAuthenticationError("unknown token", nil)
	}
	if !agent.Enabled {
		return nil, NewAuthenticationError("agent disabled", nil)
	}

	return &Identity{
		AgentID: agent.ID,
		Scopes:  append([]string(nil), agent.Scopes...),
		Intents: append([]string(nil), agent.Intents...),
	}, nil
}

// Add registers an agent. An existing agent with the same token is replaced.
func (v *StaticVerifier) Add(agent *Agent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.agents[agent.Token] = agent
}

// Remove deletes the agent registered under the given token.
func (v *StaticVerifier) Remove(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.agents, token)
}
