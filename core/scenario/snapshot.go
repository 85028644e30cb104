package scenario

// Snapshot aggregates the pool economics at the end of one simulated month.
type Snapshot struct {
	Month                 int     `json:"month"`
	Timestamp             int64   `json:"timestamp"`
	RegularSubscribers    int     `json:"regularSubscribers"`
	NewSubscribers        int     `json:"newSubscribers"`
	AverageROI            float64 `json:"averageRoi"`
	CreatorEarnings       float64 `json:"creatorEarnings"`
	ProtocolEarnings      float64 `json:"protocolEarnings"`
	ClientEarnings        float64 `json:"clientEarnings"`
	TotalRewards          float64 `json:"totalRewards"`
	TestSubscriberROI     float64 `json:"testSubscriberRoi"`
	TestSubscriberRewards float64 `json:"testSubscriberRewards"`
	RewardPool            float64 `json:"rewardPool"`
	TotalShares           float64 `json:"totalShares"`
}

// Final returns the last snapshot of a series.
func Final(series []Snapshot) (Snapshot, bool) {
	if len(series) == 0 {
		return Snapshot{}, false
	}
	return series[len(series)-1], true
}
