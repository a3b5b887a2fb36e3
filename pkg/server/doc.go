// Package server provides the HTTP server for the context governance proxy.
//
// This package ties together the request pipeline, the audit trail read
// surface, and the operational endpoints, and provides server lifecycle
// management including start, shutdown, and OS signal handling.
//
// # Basic Usage
//
// Creating and starting a server:
//
//	cfg := config.MustGetConfig()
//
//	srv, err := server.New(cfg, &server.Dependencies{
//	    Provider:     pipeline,     // *proxy.Proxy
//	    AuditStorage: auditStore,
//	    Checker:      checker,
//	    Metrics:      collector,
//	    Build:        server.BuildInfo{Version: version},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until the context is cancelled, a shutdown signal
// (SIGTERM, SIGINT) arrives, Stop is called, or the listener fails.
// Shutdown stops accepting connections and waits up to the configured
// shutdown timeout for in-flight requests.
//
// # Routes
//
//   - POST /v1/context — governed context assembly
//   - GET /v1/audit/records — audit trail query (operator surface)
//   - GET /v1/audit/verify — audit chain verification (operator surface)
//   - GET /healthz, /readyz — probes (paths configurable)
//   - GET /version — build information
//   - GET /metrics — Prometheus endpoint (path configurable)
//
// # Middleware Chain
//
// Requests pass through, outermost first: Recovery, RequestID, Logging,
// CORS, trace propagation when tracing is enabled, and Timeout.
//
// # TLS
//
// The server terminates TLS when configured, minimum version 1.3 unless
// the configuration lowers it to 1.2:
//
//	server:
//	  tls:
//	    enabled: true
//	    cert_file: "/path/to/cert.pem"
//	    key_file: "/path/to/key.pem"
//	    min_version: "1.3"
package server
