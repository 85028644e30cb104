package subscription

import (
	"strconv"

	"subpool/core/events"
	"subpool/core/types"
)

const (
	// EventTypeSubscriberAdmitted is emitted when a subscriber joins the pool.
	EventTypeSubscriberAdmitted = "subscription.admitted"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// SubscriberAdmittedEvent returns the structured payload for an admission.
func SubscriberAdmittedEvent(address string, timestamp int64, adm Admission) *types.Event {
	return &types.Event{
		Type: EventTypeSubscriberAdmitted,
		Attributes: map[string]string{
			"address":      address,
			"timestamp":    strconv.FormatInt(timestamp, 10),
			"payment":      formatAmount(adm.Payment),
			"rewardAmount": formatAmount(adm.RewardAmount),
			"multiplier":   formatAmount(adm.Multiplier),
			"shares":       formatAmount(adm.Shares),
		},
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
