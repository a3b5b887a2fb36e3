/*
Package policy turns a request intent into a governance decision.

A Decision names, for one intent, the sources to consult, the exact fields
each source may release, the declared sensitive fields, and the constraints
(TTL, permitted actions, data classification) stamped onto the resulting
envelope. Decisions are loaded from YAML files — one intent per file — and
served from an immutable in-memory snapshot, so Decide is a pure lookup:
the same intent against the same policy version always yields the same
decision. That determinism is what makes the governance guarantee auditable.

# Policy files

	version: "2025-06-01"
	intent: loan_assessment
	classification: confidential
	ttl_seconds: 300
	permitted_actions:
	  - assess_eligibility
	  - recommend_products
	redacted_fields:
	  - ssn
	  - internal_notes
	sources:
	  - name: customer
	    required: true
	    freshness: real-time
	    key_param: customer_id
	    fields: [name, employment_status, annual_income]
	  - name: property
	    required: false
	    freshness: 30d
	    key_param: property_id
	    fields: [estimated_value, property_type]

The fields list is a strict allow-list: anything a source returns that is
not named here is dropped before the payload leaves the proxy. A source's
freshness declares how stale a cached payload may be ("real-time" disables
caching; "24h" and "30d" style values set the cache TTL and are surfaced in
envelope provenance).

# Reloading

The Watcher observes the policy directory through fsnotify and reloads the
engine snapshot after a debounce interval. A reload that fails validation
leaves the previous snapshot serving. The git subpackage materializes policy
packs from a git repository instead of a local directory.
*/
package policy
