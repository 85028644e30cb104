package exports

import (
	"bytes"
	"encoding/json"

	"subpool/core/scenario"
)

type jsonlRow struct {
	Run
	scenario.Snapshot
}

// SnapshotsJSONL builds a JSON Lines export with one object per month and
// returns the serialised payload alongside a checksum.
func SnapshotsJSONL(run Run, series []scenario.Snapshot) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, snap := range series {
		if err := encoder.Encode(jsonlRow{Run: run, Snapshot: snap}); err != nil {
			return nil, "", err
		}
	}
	return checksummed(buffer.Bytes())
}
