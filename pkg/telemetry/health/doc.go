// Package health provides liveness and readiness checks for the proxy.
//
// Liveness answers "is the process running" and never touches
// dependencies. Readiness runs every registered component check
// concurrently (policy registry, audit store, sources) and degrades to
// 503 when any fails, so load balancers stop routing to an instance
// that cannot assemble context.
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("policies", func(ctx context.Context) error {
//	    return registry.Ping(ctx)
//	})
//
//	mux.Handle(cfg.Telemetry.Health.LivenessPath, checker.LivenessHandler())
//	mux.Handle(cfg.Telemetry.Health.ReadinessPath, checker.ReadinessHandler())
package health
