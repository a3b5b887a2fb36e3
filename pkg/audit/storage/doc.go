/*
Package storage provides audit trail storage backends.

Two backends are available:

  - MemoryStorage: in-memory, for development and tests
  - SQLiteStorage: durable single-file storage with WAL journaling

Both are append-only and gap-free: a record's sequence must be exactly
one past the previous record's, and the only removal path is
PruneToSeq, which advances the chain anchor atomically with the
delete.
*/
package storage
