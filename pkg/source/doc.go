/*
Package source provides the data-source connectors the proxy fans out to
when it assembles a context envelope.

A connector implements the Fetcher interface: given a subject key it
returns the raw record held by one upstream system of record. Connectors
never filter; they return everything the upstream exposes, and the
filtering stage downstream reduces that to the policy allow-list.

# Connectors

Three connector types are provided:

  - StaticFetcher serves fixture records from memory. It backs the
    bundled examples and is the deterministic stand-in for tests.
  - HTTPFetcher queries a JSON REST endpoint, with bearer or header
    auth, bounded response size, and status-code classification.
  - SQLFetcher runs a single-row query against PostgreSQL or MySQL
    through database/sql.

# Registry

The Registry maps policy source names to connectors. The fan-out stage
resolves each source named by a policy through the registry; a policy
naming an unregistered source fails closed.

# Errors

Fetch failures are reported as *SourceError. A subject key the upstream
does not know is reported as *NotFoundError so callers can distinguish
"no such record" from "source unavailable".
*/
package source
