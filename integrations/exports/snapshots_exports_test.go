package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"subpool/core/scenario"
)

func sampleSeries() []scenario.Snapshot {
	return []scenario.Snapshot{
		{Month: 1, Timestamp: 1735689600, RegularSubscribers: 100, AverageROI: -12.5, CreatorEarnings: 1482, ProtocolEarnings: 20.2, ClientEarnings: 101, TotalRewards: 395.2, TestSubscriberROI: 3.25, TestSubscriberRewards: 61.9, RewardPool: 395.2, TotalShares: 1e7},
		{Month: 2, Timestamp: 1738281600, RegularSubscribers: 105, NewSubscribers: 5, AverageROI: -10, CreatorEarnings: 1556.1, ProtocolEarnings: 21.2, ClientEarnings: 106, TotalRewards: 414.96, TestSubscriberROI: 1, TestSubscriberRewards: 60.6, RewardPool: 414.96, TotalShares: 1.1e7},
	}
}

var sampleRun = Run{ID: "run-1", Scenario: "base", Fingerprint: "abc"}

func verifyChecksum(t *testing.T, data []byte, checksum string) {
	t.Helper()
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != checksum {
		t.Fatalf("checksum mismatch")
	}
}

func TestSnapshotsCSV(t *testing.T) {
	data, checksum, err := SnapshotsCSV(sampleRun, sampleSeries())
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	verifyChecksum(t, data, checksum)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, snapshotHeader, records[0])
	require.Equal(t, []string{"run-1", "base", "2", "1738281600", "105", "5", "-10", "1556.1", "21.2", "106", "414.96", "1", "60.6", "414.96", "11000000"}, records[2])
}

func TestSnapshotsJSONL(t *testing.T) {
	data, checksum, err := SnapshotsJSONL(sampleRun, sampleSeries())
	if err != nil {
		t.Fatalf("jsonl: %v", err)
	}
	verifyChecksum(t, data, checksum)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	var row map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &row))
	require.Equal(t, "run-1", row["runId"])
	require.Equal(t, "base", row["scenario"])
	require.Equal(t, float64(1), row["month"])
	require.Equal(t, 3.25, row["testSubscriberRoi"])
}

func TestSnapshotsParquetReadsBack(t *testing.T) {
	data, checksum, err := SnapshotsParquet(sampleRun, sampleSeries())
	require.NoError(t, err)
	verifyChecksum(t, data, checksum)
	require.True(t, bytes.HasPrefix(data, []byte("PAR1")))

	path := filepath.Join(t.TempDir(), "series.parquet")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	file, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer file.Close()
	pr, err := reader.NewParquetReader(file, new(parquetRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.Equal(t, int64(2), pr.GetNumRows())
	rows := make([]parquetRow, 2)
	require.NoError(t, pr.Read(&rows))
	require.Equal(t, int32(2), rows[1].Month)
	require.Equal(t, int64(5), rows[1].NewSubscribers)
	require.Equal(t, 414.96, rows[1].RewardPool)
	require.Equal(t, "base", rows[0].Scenario)
	require.Equal(t, "run-1", rows[1].RunID)
	require.Equal(t, "base", rows[1].Scenario)
}

func TestEncodeDispatch(t *testing.T) {
	for _, name := range []string{"json", "CSV", " jsonl ", "parquet"} {
		format, err := ParseFormat(name)
		require.NoError(t, err)
		data, checksum, err := Encode(format, sampleRun, sampleSeries())
		require.NoError(t, err, name)
		verifyChecksum(t, data, checksum)
	}

	data, _, err := Encode(FormatJSON, sampleRun, nil)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "abc", doc.Fingerprint)
	require.NotNil(t, doc.Snapshots)

	_, err = ParseFormat("xml")
	require.True(t, errors.Is(err, ErrUnknownFormat))
	_, _, err = Encode(Format("xml"), sampleRun, nil)
	require.ErrorIs(t, err, ErrUnknownFormat)
}
