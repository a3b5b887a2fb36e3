package policy

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/gowebpki/jcs"
)

// Engine serves governance decisions from an immutable snapshot of loaded
// policies. Decide is a pure lookup: no side effects, deterministic for a
// given (intent, policy version) pair. Reload swaps the snapshot atomically;
// in-flight requests keep the decision they already hold.
type Engine struct {
	mu        sync.RWMutex
	decisions map[string]*Decision
	digest    string
	logger    *slog.Logger
}

// NewEngine creates an engine with an empty snapshot.
func NewEngine() *Engine {
	return &Engine{
		decisions: make(map[string]*Decision),
		logger:    slog.Default().With("component", "policy-engine"),
	}
}

// Load replaces the snapshot with the given decisions. Each decision is
// validated; a duplicate intent or an invalid decision rejects the whole
// load and leaves the current snapshot serving.
func (e *Engine) Load(decisions []*Decision) error {
	next := make(map[string]*Decision, len(decisions))
	for _, d := range decisions {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, exists := next[d.Intent]; exists {
			return NewValidationError(d.Intent, "intent", "duplicate intent across policy set")
		}
		next[d.Intent] = d.Clone()
	}

	digest, err := snapshotDigest(next)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.decisions = next
	e.digest = digest
	e.mu.Unlock()

	e.logger.Info("policy snapshot loaded",
		"intents", len(next),
		"digest", digest)
	return nil
}

// Decide returns the decision for the intent, or *NotFoundError. The
// returned decision is the caller's own copy.
func (e *Engine) Decide(intent string) (*Decision, error) {
	e.mu.RLock()
	d, ok := e.decisions[intent]
	e.mu.RUnlock()

	if !ok {
		return nil, NewNotFoundError(intent)
	}
	return d.Clone(), nil
}

// Intents returns the governed intent names, sorted.
func (e *Engine) Intents() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	intents := make([]string, 0, len(e.decisions))
	for intent := range e.decisions {
		intents = append(intents, intent)
	}
	sort.Strings(intents)
	return intents
}

// Digest identifies the loaded snapshot: a canonical-JSON hash over the
// intent→version map. Logged on reload and exposed for operator inspection.
func (e *Engine) Digest() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.digest
}

// Len returns the number of governed intents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.decisions)
}

// snapshotDigest hashes the intent→version map in RFC 8785 canonical form,
// so the digest is stable across load order and map iteration.
func snapshotDigest(decisions map[string]*Decision) (string, error) {
	versions := make(map[string]string, len(decisions))
	for intent, d := range decisions {
		versions[intent] = d.Version
	}

	raw, err := json.Marshal(versions)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	return sha256Hex(canonical), nil
}
