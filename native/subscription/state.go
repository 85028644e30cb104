package subscription

import (
	"math"
	"math/big"
)

const auditPrecision = 256

// State holds every admitted subscriber and the cumulative pool accounting
// for one simulation run. Records live in an append-only arena in admission
// order; the index map resolves addresses to arena slots.
type State struct {
	records []Subscriber
	index   map[string]int
	totals  Totals
}

// NewState constructs an empty state.
func NewState() *State {
	return &State{index: make(map[string]int)}
}

// Reset discards every subscriber and zeroes the cumulative totals.
func (s *State) Reset() {
	if s == nil {
		return
	}
	s.records = nil
	s.index = make(map[string]int)
	s.totals = Totals{}
}

// Len returns the number of admitted subscribers.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Subscriber returns a copy of the record for address.
func (s *State) Subscriber(address string) (Subscriber, bool) {
	if s == nil {
		return Subscriber{}, false
	}
	idx, ok := s.index[address]
	if !ok {
		return Subscriber{}, false
	}
	return s.records[idx], true
}

// Each visits every subscriber in admission order until fn returns false.
func (s *State) Each(fn func(sub Subscriber) bool) {
	if s == nil || fn == nil {
		return
	}
	for i := range s.records {
		if !fn(s.records[i]) {
			return
		}
	}
}

// Totals returns a copy of the cumulative accounting.
func (s *State) Totals() Totals {
	if s == nil {
		return Totals{}
	}
	return s.totals
}

func (s *State) lookup(address string) (*Subscriber, bool) {
	idx, ok := s.index[address]
	if !ok {
		return nil, false
	}
	return &s.records[idx], true
}

func (s *State) admit(sub Subscriber, adm Admission) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	s.index[sub.Address] = len(s.records)
	s.records = append(s.records, sub)
	s.totals.TotalShares += adm.Shares
	s.totals.RewardPool += adm.RewardAmount
	s.totals.CreatorBalance += adm.CreatorAmount
	s.totals.ProtocolEarnings += adm.ProtocolFee
	s.totals.ClientEarnings += adm.ClientFee
}

// AuditReport compares the incrementally maintained totals against an
// exact recomputation from the subscriber records.
type AuditReport struct {
	Subscribers      int     `json:"subscribers"`
	RewardPool       float64 `json:"rewardPool"`
	RecomputedPool   float64 `json:"recomputedPool"`
	PoolDrift        float64 `json:"poolDrift"`
	TotalShares      float64 `json:"totalShares"`
	RecomputedShares float64 `json:"recomputedShares"`
	SharesDrift      float64 `json:"sharesDrift"`
	ProtocolDrift    float64 `json:"protocolDrift"`
	ClientDrift      float64 `json:"clientDrift"`
	CreatorDrift     float64 `json:"creatorDrift"`
}

// MaxRelativeDrift returns the largest drift relative to its total.
func (r AuditReport) MaxRelativeDrift() float64 {
	rel := func(drift, total float64) float64 {
		if total == 0 {
			return drift
		}
		return drift / math.Abs(total)
	}
	return math.Max(rel(r.PoolDrift, r.RewardPool), rel(r.SharesDrift, r.TotalShares))
}

// Audit recomputes the pool totals from the arena at high precision and
// reports the absolute rounding drift of each running total.
func (s *State) Audit() AuditReport {
	report := AuditReport{}
	if s == nil {
		return report
	}
	var (
		pool     = newAuditFloat()
		shares   = newAuditFloat()
		protocol = newAuditFloat()
		client   = newAuditFloat()
		creator  = newAuditFloat()
	)
	for i := range s.records {
		rec := &s.records[i]
		pool.Add(pool, newAuditFloat().SetFloat64(rec.RewardAmount))
		shares.Add(shares, newAuditFloat().SetFloat64(rec.RewardShares))
		protocol.Add(protocol, newAuditFloat().SetFloat64(rec.ProtocolFee))
		client.Add(client, newAuditFloat().SetFloat64(rec.ClientFee))
		creator.Add(creator, newAuditFloat().SetFloat64(rec.NetPayment-rec.RewardAmount))
	}
	report.Subscribers = len(s.records)
	report.RewardPool = s.totals.RewardPool
	report.RecomputedPool, _ = pool.Float64()
	report.PoolDrift = drift(pool, s.totals.RewardPool)
	report.TotalShares = s.totals.TotalShares
	report.RecomputedShares, _ = shares.Float64()
	report.SharesDrift = drift(shares, s.totals.TotalShares)
	report.ProtocolDrift = drift(protocol, s.totals.ProtocolEarnings)
	report.ClientDrift = drift(client, s.totals.ClientEarnings)
	report.CreatorDrift = drift(creator, s.totals.CreatorBalance)
	return report
}

func newAuditFloat() *big.Float {
	return new(big.Float).SetPrec(auditPrecision)
}

func drift(exact *big.Float, running float64) float64 {
	diff := newAuditFloat().Sub(exact, newAuditFloat().SetFloat64(running))
	out, _ := diff.Abs(diff).Float64()
	return out
}
