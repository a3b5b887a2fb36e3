// Package handlers implements the proxy's HTTP endpoints.
//
// Agents call one endpoint:
//
//	POST /v1/context      run the governance pipeline, return an envelope
//
// Operators read the audit trail:
//
//	GET /v1/audit/records list records, filterable and paginated
//	GET /v1/audit/verify  walk the hash chain, report integrity
//
// The audit endpoints are part of the operator surface alongside
// health and metrics; deployments expose them on the internal network,
// not to agents.
//
// Handlers depend on narrow interfaces (ContextProvider) rather than
// concrete pipeline types, so tests drive them with stubs.
package handlers
