package identity

import (
	"context"
	"log/slog"
)

// Validator performs the full identity stage for a request: token
// verification followed by the intent grant check. It has no side effects
// beyond structured logging.
type Validator struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewValidator creates a validator around the given verifier.
func NewValidator(verifier Verifier) *Validator {
	return &Validator{
		verifier: verifier,
		logger:   slog.Default().With("component", "identity"),
	}
}

// Validate authenticates the token and authorizes the intent. It returns
// *AuthenticationError if the token cannot be resolved to a principal and
// *AuthorizationError if the principal is not granted the intent.
func (v *Validator) Validate(ctx context.Context, token, intent string) (*Identity, error) {
	id, err := v.verifier.Verify(ctx, token)
	if err != nil {
		v.logger.Warn("authentication failed", "error", err)
		return nil, err
	}

	if !id.Permits(intent) {
		v.logger.Warn("authorization denied",
			"agent_id", id.AgentID,
			"intent", intent)
		return nil, NewAuthorizationError(id.AgentID, intent)
	}

	v.logger.Debug("identity validated",
		"agent_id", id.AgentID,
		"intent", intent)
	return id, nil
}
