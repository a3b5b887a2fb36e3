package storage

// SchemaVersion is the version of the SQLite schema this package
// expects. Opening a database with a different version fails rather
// than migrating silently.
const SchemaVersion = 1

// Schema creates the audit tables. Timestamps are stored as
// fixed-width UTC text so that lexical comparison on the timestamp
// index matches chronological order.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    seq             INTEGER PRIMARY KEY,
    id              TEXT NOT NULL UNIQUE,
    request_id      TEXT NOT NULL,
    timestamp       TEXT NOT NULL,
    recorded_at     TEXT NOT NULL,
    agent_id        TEXT NOT NULL,
    intent          TEXT NOT NULL,
    subject_key     TEXT,
    policy_decision TEXT,
    status          TEXT NOT NULL,
    error_type      TEXT,
    error_message   TEXT,
    sources_queried TEXT,
    sources_omitted TEXT,
    fields_returned TEXT,
    fields_redacted TEXT,
    original_size   INTEGER NOT NULL DEFAULT 0,
    filtered_size   INTEGER NOT NULL DEFAULT 0,
    classification  TEXT,
    envelope_digest TEXT,
    duration_ms     INTEGER NOT NULL DEFAULT 0,
    prev_digest     TEXT,
    digest          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_records_timestamp ON audit_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_records_agent_id ON audit_records(agent_id);
CREATE INDEX IF NOT EXISTS idx_audit_records_intent ON audit_records(intent);
CREATE INDEX IF NOT EXISTS idx_audit_records_request_id ON audit_records(request_id);
CREATE INDEX IF NOT EXISTS idx_audit_records_status ON audit_records(status);

CREATE TABLE IF NOT EXISTS chain_anchor (
    id     INTEGER PRIMARY KEY CHECK (id = 1),
    seq    INTEGER NOT NULL,
    digest TEXT NOT NULL
);

INSERT OR IGNORE INTO chain_anchor (id, seq, digest) VALUES (1, 0, '');

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`
