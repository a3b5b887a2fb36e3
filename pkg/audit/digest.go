package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// ComputeDigest returns the SHA-256 hex digest of the record's
// RFC 8785 canonical JSON form, computed with the Digest field empty.
// PrevDigest is part of the digested form, which is what chains the
// records: recomputing any record after an edit upstream yields a
// different digest.
func ComputeDigest(record *Record) (string, error) {
	if record == nil {
		return "", fmt.Errorf("record is nil")
	}

	core := *record
	core.Digest = ""

	raw, err := json.Marshal(&core)
	if err != nil {
		return "", fmt.Errorf("marshaling record: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalizing record: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyRecord checks a single record against its expected chain
// position. It returns a TamperedRecordError describing the first
// mismatch found, or nil when the record is intact.
func VerifyRecord(record *Record, wantSeq int64, wantPrevDigest string) error {
	if record.Seq != wantSeq {
		return NewTamperedRecordError(record.Seq, record.ID,
			fmt.Sprintf("sequence gap: want seq %d", wantSeq))
	}
	if record.PrevDigest != wantPrevDigest {
		return NewTamperedRecordError(record.Seq, record.ID,
			"prev_digest does not match the preceding record")
	}
	computed, err := ComputeDigest(record)
	if err != nil {
		return NewTamperedRecordError(record.Seq, record.ID,
			fmt.Sprintf("digest not computable: %v", err))
	}
	if computed != record.Digest {
		return NewTamperedRecordError(record.Seq, record.ID,
			"digest does not match record contents")
	}
	return nil
}
