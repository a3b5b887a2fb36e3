// Package proxy runs the context-governance pipeline and exposes it
// over HTTP.
//
// The Proxy is the single chokepoint between agents and the systems of
// record. A request names an intent and a subject; the proxy decides
// everything else:
//
//  1. Identity — the caller token is resolved to an agent and the
//     intent grant is checked (identity package).
//  2. Quota — the agent's request budget is charged (limits package,
//     optional).
//  3. Policy — the intent is resolved to a governing decision: which
//     sources, which fields, what freshness (policy package).
//  4. Fan-out — every policy source is fetched in parallel under
//     per-source and total budgets (fanout package).
//  5. Filter — each payload is projected onto its field allow-list
//     (filter package).
//  6. Envelope — payload, provenance, and constraints are assembled
//     and digested (envelope package).
//  7. Audit — the outcome is appended to the hash-chained trail
//     (audit package). A successful envelope is not released until
//     its record is durable; if the append fails, the envelope is
//     discarded and the request fails.
//
// Refusals at any stage are audited too, best-effort, so the trail
// answers "who asked for what" even when the answer was no.
//
// # Usage
//
//	p, err := proxy.New(proxy.Dependencies{
//		Validator:   validator,
//		Engine:      engine,
//		Sources:     registry,
//		Coordinator: coordinator,
//		Recorder:    recorder,
//	})
//	if err != nil {
//		return err
//	}
//	env, err := p.RequestContext(ctx, &proxy.ContextRequest{
//		Intent:     "loan_assessment",
//		Parameters: map[string]string{"customer_id": "cust-4412"},
//		CallerToken: token,
//	})
//
// # Errors
//
// Each stage fails with a typed error; HandleError maps them to wire
// responses with stable machine-readable codes:
//
//	authentication_failed  401  token could not be resolved
//	authorization_denied   403  agent lacks the intent grant
//	policy_not_found       404  no policy governs the intent
//	subject_not_found      404  a source has no record for the subject
//	quota_exceeded         429  request budget exhausted
//	source_unavailable     502  a required source failed
//	request_timeout        504  a time budget was exhausted
//	internal_error         500  anything else
//
// The handlers subpackage serves the pipeline at POST /v1/context and
// the audit trail at GET /v1/audit/records and /v1/audit/verify; the
// middleware subpackage supplies request IDs, request logging, panic
// recovery, timeouts, and CORS.
package proxy
