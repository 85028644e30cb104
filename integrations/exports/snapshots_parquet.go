package exports

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"subpool/core/scenario"
)

type parquetRow struct {
	RunID                 string  `parquet:"name=run_id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Scenario              string  `parquet:"name=scenario, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Month                 int32   `parquet:"name=month, type=INT32"`
	Timestamp             int64   `parquet:"name=timestamp, type=INT64"`
	RegularSubscribers    int64   `parquet:"name=regular_subscribers, type=INT64"`
	NewSubscribers        int64   `parquet:"name=new_subscribers, type=INT64"`
	AverageROI            float64 `parquet:"name=average_roi, type=DOUBLE"`
	CreatorEarnings       float64 `parquet:"name=creator_earnings, type=DOUBLE"`
	ProtocolEarnings      float64 `parquet:"name=protocol_earnings, type=DOUBLE"`
	ClientEarnings        float64 `parquet:"name=client_earnings, type=DOUBLE"`
	TotalRewards          float64 `parquet:"name=total_rewards, type=DOUBLE"`
	TestSubscriberROI     float64 `parquet:"name=test_subscriber_roi, type=DOUBLE"`
	TestSubscriberRewards float64 `parquet:"name=test_subscriber_rewards, type=DOUBLE"`
	RewardPool            float64 `parquet:"name=reward_pool, type=DOUBLE"`
	TotalShares           float64 `parquet:"name=total_shares, type=DOUBLE"`
}

// SnapshotsParquet builds a snappy-compressed Parquet export of the series
// and returns the file bytes alongside a checksum.
func SnapshotsParquet(run Run, series []scenario.Snapshot) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	pw, err := writer.NewParquetWriter(writerfile.NewWriterFile(buffer), new(parquetRow), 1)
	if err != nil {
		return nil, "", fmt.Errorf("exports: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, snap := range series {
		row := &parquetRow{
			RunID:                 run.ID,
			Scenario:              run.Scenario,
			Month:                 int32(snap.Month),
			Timestamp:             snap.Timestamp,
			RegularSubscribers:    int64(snap.RegularSubscribers),
			NewSubscribers:        int64(snap.NewSubscribers),
			AverageROI:            snap.AverageROI,
			CreatorEarnings:       snap.CreatorEarnings,
			ProtocolEarnings:      snap.ProtocolEarnings,
			ClientEarnings:        snap.ClientEarnings,
			TotalRewards:          snap.TotalRewards,
			TestSubscriberROI:     snap.TestSubscriberROI,
			TestSubscriberRewards: snap.TestSubscriberRewards,
			RewardPool:            snap.RewardPool,
			TotalShares:           snap.TotalShares,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, "", fmt.Errorf("exports: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, "", fmt.Errorf("exports: parquet finalize: %w", err)
	}
	return checksummed(buffer.Bytes())
}
