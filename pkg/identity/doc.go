/*
Package identity provides caller authentication and intent authorization for
Ganymede.

Every context request carries a caller token and a requested intent. The
identity stage resolves the token to an agent principal (authentication) and
checks that the principal is granted the intent (authorization) before any
backend source is contacted.

# Verifiers

Token verification is pluggable through the Verifier interface:

	verifier := identity.NewStaticVerifier([]*identity.Agent{
		{
			ID:      "agent-loan-officer",
			Token:   "tok-lo-7f3a",
			Scopes:  []string{"customer:read", "account:read"},
			Intents: []string{"loan_assessment"},
		},
	})

	validator := identity.NewValidator(verifier)
	id, err := validator.Validate(ctx, "tok-lo-7f3a", "loan_assessment")

StaticVerifier is a deterministic in-memory table, intended for tests, demos,
and small fixed deployments. JWTVerifier validates HMAC-signed JWTs and reads
the agent id from the subject claim and grants from the "scopes" and
"intents" claims. Production deployments that verify tokens against an
external service implement Verifier themselves; Verify takes a context so
such implementations can honor deadlines.

# Errors

Authentication failures (unknown or malformed token) return
*AuthenticationError. A valid principal requesting an intent it was not
granted returns *AuthorizationError. Both fail the request before fan-out.

Token values are never logged; log lines carry agent ids only.
*/
package identity
