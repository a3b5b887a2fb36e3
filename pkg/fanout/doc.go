/*
Package fanout runs the concurrent source-retrieval stage of context
assembly.

Given the source list a policy names, the Coordinator fetches every
source in parallel, each fetch bounded by a per-source timeout and the
whole stage bounded by a total budget. Results come back as a ResultSet
that distinguishes three outcomes per source:

  - fetched: the payload is available for filtering
  - required failure: the request cannot proceed
  - optional failure: the source is omitted and the envelope is
    assembled degraded

A payload cache can be plugged in; cache hits skip the upstream fetch
and cache failures are soft (logged, never fatal). Sources whose policy
declares real-time freshness bypass the cache entirely.
*/
package fanout
