package audit

import (
	"context"
	"time"
)

// VerificationResult is the outcome of a chain verification pass.
type VerificationResult struct {
	// Intact is true when every record checked links correctly to its
	// predecessor and matches its own digest.
	Intact bool `json:"intact"`

	// RecordsChecked is the number of records examined.
	RecordsChecked int64 `json:"records_checked"`

	// AnchorSeq is the sequence the chain was verified from. Records
	// at or below it were pruned under retention and are not checked.
	AnchorSeq int64 `json:"anchor_seq"`

	// VerifiedAt is when the pass ran.
	VerifiedAt time.Time `json:"verified_at"`

	// Failure describes the first broken record. Nil when intact.
	Failure *TamperedRecordError `json:"failure,omitempty"`
}

// VerifyChain walks the full audit trail from the chain anchor and
// checks every record's sequence, predecessor digest, and own digest.
// A broken chain is reported in the result, not as an error; the
// error return is for storage failures only.
func VerifyChain(ctx context.Context, storage Storage) (*VerificationResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	anchor, err := storage.Anchor(ctx)
	if err != nil {
		return nil, err
	}

	records, errs, err := storage.Stream(ctx, nil)
	if err != nil {
		return nil, err
	}

	result := &VerificationResult{
		Intact:     true,
		AnchorSeq:  anchor.Seq,
		VerifiedAt: time.Now().UTC(),
	}
	wantSeq := anchor.Seq + 1
	wantPrev := anchor.Digest

	for record := range records {
		if err := VerifyRecord(record, wantSeq, wantPrev); err != nil {
			result.Intact = false
			result.Failure = err.(*TamperedRecordError)
			return result, nil
		}
		result.RecordsChecked++
		wantSeq = record.Seq + 1
		wantPrev = record.Digest
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return result, nil
}
