/*
Package storage persists quota window state across restarts.

Backends store one snapshot per agent: the live buckets of its minute
and hour windows. The quota manager writes through on every change
and restores on first access, so a restart neither forgets recent
usage nor blocks on storage.

Two backends are available: memory (tests and ephemeral deployments)
and SQLite via the pure-Go driver, which keeps the binary cgo-free.
*/
package storage
