// Ganymede is a context governance proxy for AI agents.
//
// It sits between agents and the systems that hold sensitive data,
// assembling policy-governed context envelopes:
//   - Agent identity verification and intent authorization
//   - Per-intent policies declaring sources and field allow-lists
//   - Parallel source fan-out with freshness-aware caching
//   - Field-level filtering before data reaches the agent
//   - A tamper-evident audit trail written before any response
//
// Usage:
//
//	# Start the proxy with the default configuration file
//	ganymede run
//
//	# Start with a custom configuration file
//	ganymede run --config /etc/ganymede/config.yaml
//
//	# Validate configuration and policy files
//	ganymede validate
//
//	# Show version information
//	ganymede version
//
//	# Inspect the audit trail
//	ganymede audit list --agent underwriting-agent --limit 20
//
//	# Verify audit chain integrity
//	ganymede audit verify
//
//	# Export audit records
//	ganymede audit export --format csv --output trail.csv
//
//	# Apply retention to the audit trail
//	ganymede audit prune --max-age 2160h
package main

func main() {
	Execute()
}
