package handlers

import (
	"context"

	"mercator-hq/ganymede/pkg/envelope"
	"mercator-hq/ganymede/pkg/proxy"
)

// ContextProvider is the pipeline capability the context handler
// depends on. *proxy.Proxy implements it; tests substitute stubs.
type ContextProvider interface {
	// RequestContext runs one context request through the pipeline.
	RequestContext(ctx context.Context, req *proxy.ContextRequest) (*envelope.ContextEnvelope, error)
}
