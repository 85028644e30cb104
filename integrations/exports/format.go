package exports

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"subpool/core/scenario"
)

// Format names a snapshot export encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

func (f Format) String() string { return string(f) }

// ErrUnknownFormat is returned for unsupported export formats.
var ErrUnknownFormat = errors.New("exports: unknown format")

// ParseFormat normalises a user supplied format name.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatJSON, FormatCSV, FormatJSONL, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, raw)
	}
}

// Document is the JSON export envelope.
type Document struct {
	Run
	Snapshots []scenario.Snapshot `json:"snapshots"`
}

// Encode serialises the series in the requested format.
func Encode(format Format, run Run, series []scenario.Snapshot) ([]byte, string, error) {
	switch format {
	case FormatCSV:
		return SnapshotsCSV(run, series)
	case FormatJSONL:
		return SnapshotsJSONL(run, series)
	case FormatParquet:
		return SnapshotsParquet(run, series)
	case FormatJSON:
		if series == nil {
			series = []scenario.Snapshot{}
		}
		buffer := &bytes.Buffer{}
		encoder := json.NewEncoder(buffer)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(Document{Run: run, Snapshots: series}); err != nil {
			return nil, "", err
		}
		return checksummed(buffer.Bytes())
	default:
		return nil, "", fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}
