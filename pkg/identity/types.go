package identity

import "context"

// Identity is the authenticated principal for one context request. It is
// created per-request from the caller token and is never persisted; the
// envelope's provenance carries a Snapshot of it.
type Identity struct {
	// AgentID is the stable identifier of the calling agent.
	AgentID string

	// Scopes are the delegation scopes attached to the token.
	Scopes []string

	// Intents are the intent names this principal may request. An empty
	// list grants nothing.
	Intents []string
}

// Snapshot is the caller view embedded in envelope provenance and audit
// records. It deliberately omits the granted intent list.
type Snapshot struct {
	AgentID string   `json:"agent_id"`
	Scopes  []string `json:"scopes,omitempty"`
}

// Snapshot returns the provenance view of the identity.
func (id *Identity) Snapshot() Snapshot {
	s := Snapshot{AgentID: id.AgentID}
	if len(id.Scopes) > 0 {
		s.Scopes = append(s.Scopes, id.Scopes...)
	}
	return s
}

// Permits reports whether the identity is granted the given intent.
func (id *Identity) Permits(intent string) bool {
	for _, granted := range id.Intents {
		if granted == intent {
			return true
		}
	}
	return false
}

// Agent is one configured principal for the static verifier.
type Agent struct {
	ID      string
	Token   string
	Enabled bool
	Scopes  []string
	Intents []string
}

// Verifier resolves a caller token to an Identity. Implementations backed by
// an external verification service should treat Verify as a blocking call
// and honor the context deadline.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
