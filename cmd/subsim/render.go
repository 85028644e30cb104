package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"subpool/core/scenario"
	"subpool/integrations/exports"
	"subpool/native/subscription"
)

// renderText prints a human readable table of the series followed by the
// final pool totals.
func renderText(w io.Writer, info exports.Run, series []scenario.Snapshot, audit subscription.AuditReport) error {
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "Scenario %s (run %s)\nConfig fingerprint %s\n\n", info.Scenario, info.ID, info.Fingerprint); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tDate\tSubscribers\tNew\tAvg ROI %\tTest ROI %\tReward pool\tCreator\tProtocol\tClient\t")
	for _, snap := range series {
		p.Fprintf(tw, "%d\t%s\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			snap.Month,
			time.Unix(snap.Timestamp, 0).UTC().Format("2006-01-02"),
			snap.RegularSubscribers,
			snap.NewSubscribers,
			snap.AverageROI,
			snap.TestSubscriberROI,
			snap.RewardPool,
			snap.CreatorEarnings,
			snap.ProtocolEarnings,
			snap.ClientEarnings,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	final, ok := scenario.Final(series)
	if !ok {
		return nil
	}
	_, err := p.Fprintf(w, "\nFinal: %d subscribers, test subscriber earned %.2f (%.2f%% ROI), %.0f shares outstanding, pool drift %.3g\n",
		audit.Subscribers, final.TestSubscriberRewards, final.TestSubscriberROI, final.TotalShares, audit.PoolDrift)
	return err
}
