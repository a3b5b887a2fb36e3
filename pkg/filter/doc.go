/*
Package filter reduces raw source payloads to the fields a policy
allows.

Filtering is allow-list only: a field reaches the caller only when the
policy names it. Fields the policy does not name never leave this
stage, regardless of what upstream systems return, and the removed
field names are reported so the envelope and audit trail can show what
was withheld. Unknown fields are therefore dropped by default; a new
upstream column leaks nothing until a policy change allows it.

Apply is a pure function over one payload. ApplyAll runs the
projection for every fetched source against its allow-list and
aggregates the byte sizes before and after filtering.
*/
package filter
