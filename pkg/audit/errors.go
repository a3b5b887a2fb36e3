package audit

import "fmt"

// StorageError indicates a failure in an audit storage backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v",
		e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RecorderError indicates a failure while building or appending a
// record. A request whose record cannot be written must not succeed,
// so the proxy surfaces this as a server error.
type RecorderError struct {
	Operation string
	Cause     error
}

func (e *RecorderError) Error() string {
	return fmt.Sprintf("audit recorder error [operation=%s]: %v", e.Operation, e.Cause)
}

func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(operation string, cause error) *RecorderError {
	return &RecorderError{
		Operation: operation,
		Cause:     cause,
	}
}

// TamperedRecordError reports the first record at which chain
// verification failed.
type TamperedRecordError struct {
	Seq      int64
	RecordID string
	Reason   string
}

func (e *TamperedRecordError) Error() string {
	return fmt.Sprintf("audit chain broken [seq=%d, record_id=%s]: %s",
		e.Seq, e.RecordID, e.Reason)
}

// NewTamperedRecordError creates a new TamperedRecordError.
func NewTamperedRecordError(seq int64, recordID, reason string) *TamperedRecordError {
	return &TamperedRecordError{
		Seq:      seq,
		RecordID: recordID,
		Reason:   reason,
	}
}

// RetentionError indicates a failure during retention pruning.
type RetentionError struct {
	Operation string
	Cause     error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("audit retention error [operation=%s]: %v", e.Operation, e.Cause)
}

func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(operation string, cause error) *RetentionError {
	return &RetentionError{
		Operation: operation,
		Cause:     cause,
	}
}

// ExportError indicates a failure during record export.
type ExportError struct {
	Format string
	Cause  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("audit export error [format=%s]: %v", e.Format, e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, cause error) *ExportError {
	return &ExportError{
		Format: format,
		Cause:  cause,
	}
}
