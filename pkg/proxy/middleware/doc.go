// Package middleware provides the HTTP middleware the proxy server
// wraps around its handlers.
//
// The server assembles the chain outermost-first:
//
//	Recovery -> RequestID -> Logging -> CORS -> Timeout -> handler
//
// Recovery is outermost so a panic anywhere below it still produces a
// well-formed error response. RequestID runs before Logging so every
// log line carries the ID. Timeout is innermost: it bounds handler
// work, not header parsing.
//
// Request-scoped values (request ID, agent ID, intent) live in the
// context under the logging package's keys, so the structured log
// handler picks them up without explicit arguments.
package middleware
