package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/ganymede/pkg/audit"
)

// csvHeader is the column order for CSV exports. List-valued fields
// are joined with semicolons; the per-source field maps are encoded
// as JSON inside their cell.
var csvHeader = []string{
	"seq",
	"id",
	"request_id",
	"timestamp",
	"recorded_at",
	"agent_id",
	"intent",
	"subject_key",
	"policy_decision",
	"status",
	"error_type",
	"error_message",
	"sources_queried",
	"sources_omitted",
	"fields_returned",
	"fields_redacted",
	"original_size",
	"filtered_size",
	"classification",
	"envelope_digest",
	"duration_ms",
	"prev_digest",
	"digest",
}

// CSVExporter writes records as CSV with a header row.
type CSVExporter struct{}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Format returns "csv".
func (e *CSVExporter) Format() string {
	return "csv"
}

// Export writes all records matching the query as CSV, streaming
// records as they arrive from storage.
func (e *CSVExporter) Export(ctx context.Context, storage audit.Storage, query *audit.Query, w io.Writer) error {
	records, errs, err := storage.Stream(ctx, query)
	if err != nil {
		return audit.NewExportError("csv", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return audit.NewExportError("csv", err)
	}

	for record := range records {
		row, err := csvRow(record)
		if err != nil {
			return audit.NewExportError("csv", fmt.Errorf("encoding record %d: %w", record.Seq, err))
		}
		if err := writer.Write(row); err != nil {
			return audit.NewExportError("csv", err)
		}
	}
	if err := <-errs; err != nil {
		return audit.NewExportError("csv", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", err)
	}
	return nil
}

func csvRow(record *audit.Record) ([]string, error) {
	fieldsReturned, err := fieldMapCell(record.FieldsReturned)
	if err != nil {
		return nil, err
	}
	fieldsRedacted, err := fieldMapCell(record.FieldsRedacted)
	if err != nil {
		return nil, err
	}

	return []string{
		strconv.FormatInt(record.Seq, 10),
		record.ID,
		record.RequestID,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.RecordedAt.UTC().Format(time.RFC3339Nano),
		record.AgentID,
		record.Intent,
		record.SubjectKey,
		record.PolicyDecision,
		record.Status,
		record.ErrorType,
		record.ErrorMessage,
		strings.Join(record.SourcesQueried, ";"),
		strings.Join(record.SourcesOmitted, ";"),
		fieldsReturned,
		fieldsRedacted,
		strconv.FormatInt(record.OriginalSize, 10),
		strconv.FormatInt(record.FilteredSize, 10),
		record.Classification,
		record.EnvelopeDigest,
		strconv.FormatInt(record.DurationMS, 10),
		record.PrevDigest,
		record.Digest,
	}, nil
}

func fieldMapCell(m map[string][]string) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
