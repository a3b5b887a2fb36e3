// Package export writes audit records to an output stream for
// compliance handoff. Exporters stream from storage rather than
// loading the full trail into memory.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"mercator-hq/ganymede/pkg/audit"
)

// JSONConfig holds configuration for the JSON exporter.
type JSONConfig struct {
	// Pretty indents the output for human reading.
	Pretty bool `yaml:"pretty"`
}

// JSONExporter writes records as a JSON array.
type JSONExporter struct {
	config *JSONConfig
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(config *JSONConfig) *JSONExporter {
	if config == nil {
		config = &JSONConfig{}
	}
	return &JSONExporter{config: config}
}

// Format returns "json".
func (e *JSONExporter) Format() string {
	return "json"
}

// Export writes all records matching the query as one JSON array,
// streaming records as they arrive from storage.
func (e *JSONExporter) Export(ctx context.Context, storage audit.Storage, query *audit.Query, w io.Writer) error {
	records, errs, err := storage.Stream(ctx, query)
	if err != nil {
		return audit.NewExportError("json", err)
	}

	if _, err := io.WriteString(w, "[\n"); err != nil {
		return audit.NewExportError("json", err)
	}

	first := true
	for record := range records {
		if !first {
			if _, err := io.WriteString(w, ",\n"); err != nil {
				return audit.NewExportError("json", err)
			}
		}
		first = false

		raw, err := e.marshal(record)
		if err != nil {
			return audit.NewExportError("json", fmt.Errorf("marshaling record %d: %w", record.Seq, err))
		}
		if _, err := w.Write(raw); err != nil {
			return audit.NewExportError("json", err)
		}
	}
	if err := <-errs; err != nil {
		return audit.NewExportError("json", err)
	}

	if _, err := io.WriteString(w, "\n]\n"); err != nil {
		return audit.NewExportError("json", err)
	}
	return nil
}

func (e *JSONExporter) marshal(record *audit.Record) ([]byte, error) {
	if e.config.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
