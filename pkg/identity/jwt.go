package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HMAC-signed JWTs. The agent id is read from the
// subject claim; delegation scopes and granted intents come from the
// "scopes" and "intents" claims.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// JWTVerifierConfig configures a JWTVerifier.
type JWTVerifierConfig struct {
	// Secret is the HMAC signing secret. Required.
	Secret string

	// Issuer, when set, must match the token's iss claim.
	Issuer string

	// Audience, when set, must be present in the token's aud claim.
	Audience string
}

type agentClaims struct {
	Scopes  []string `json:"scopes,omitempty"`
	Intents []string `json:"intents,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTVerifier creates a JWT verifier with the given configuration.
func NewJWTVerifier(cfg JWTVerifierConfig) (*JWTVerifier, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt verifier: secret cannot be empty")
	}
	return &JWTVerifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}, nil
}

// Verify parses and validates the token and maps its claims to an Identity.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, NewAuthenticationError("empty token", nil)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &agentClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, NewAuthenticationError(jwtFailureReason(err), err)
	}
	if !parsed.Valid {
		return nil, NewAuthenticationError("invalid token", nil)
	}
	if claims.Subject == "" {
		return nil, NewAuthenticationError("token has no subject", nil)
	}

	return &Identity{
		AgentID: claims.Subject,
		Scopes:  claims.Scopes,
		Intents: claims.Intents,
	}, nil
}

// jwtFailureReason maps jwt library errors to stable reason strings so
// callers and logs do not depend on library error text.
func jwtFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "invalid issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "invalid audience"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	default:
		return "invalid token"
	}
}
