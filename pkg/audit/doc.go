/*
Package audit defines the tamper-evident audit trail every context
request leaves behind.

Each request appends exactly one Record describing who asked, under
which intent and policy version, which sources were queried, which
fields were returned and which were withheld, and how the request
ended. Records are appended before the response is released: a request
whose record cannot be written does not succeed.

# Hash chain

Records form a hash chain. Every record carries the digest of its
predecessor and its own digest over its RFC 8785 canonical JSON form,
so editing or deleting a record in place breaks every digest after it.
Retention pruning moves the chain anchor forward instead of breaking
the chain: the anchor stores the sequence and digest of the last
pruned record, and verification seeds from it.

# Layout

Subpackages follow the storage/recorder/export/retention split:

  - storage: memory and SQLite append-only backends
  - recorder: serialized append path that links the chain
  - export: JSON and CSV output for compliance handoff
  - retention: scheduled pruning with anchor advancement

Chain verification lives here, next to the Record and Storage
definitions it checks.
*/
package audit
