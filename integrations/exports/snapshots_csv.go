package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"strconv"

	"subpool/core/scenario"
)

// Run identifies the simulation run a snapshot series belongs to.
type Run struct {
	ID          string `json:"runId"`
	Scenario    string `json:"scenario"`
	Fingerprint string `json:"configFingerprint,omitempty"`
}

var snapshotHeader = []string{
	"run_id", "scenario", "month", "timestamp", "regular_subscribers", "new_subscribers",
	"average_roi", "creator_earnings", "protocol_earnings", "client_earnings", "total_rewards",
	"test_subscriber_roi", "test_subscriber_rewards", "reward_pool", "total_shares",
}

// SnapshotsCSV builds a CSV export for the supplied monthly snapshots and
// returns the serialised data alongside a SHA-256 checksum of the payload.
func SnapshotsCSV(run Run, series []scenario.Snapshot) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if err := writer.Write(snapshotHeader); err != nil {
		return nil, "", err
	}
	for _, snap := range series {
		record := []string{
			run.ID,
			run.Scenario,
			strconv.Itoa(snap.Month),
			strconv.FormatInt(snap.Timestamp, 10),
			strconv.Itoa(snap.RegularSubscribers),
			strconv.Itoa(snap.NewSubscribers),
			formatFloat(snap.AverageROI),
			formatFloat(snap.CreatorEarnings),
			formatFloat(snap.ProtocolEarnings),
			formatFloat(snap.ClientEarnings),
			formatFloat(snap.TotalRewards),
			formatFloat(snap.TestSubscriberROI),
			formatFloat(snap.TestSubscriberRewards),
			formatFloat(snap.RewardPool),
			formatFloat(snap.TotalShares),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	return checksummed(buffer.Bytes())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func checksummed(data []byte) ([]byte, string, error) {
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}
