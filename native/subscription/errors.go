package subscription

import "errors"

var (
	// ErrInvalidConfig is wrapped by every configuration validation failure.
	ErrInvalidConfig = errors.New("subscription: invalid configuration")
	// ErrNilState is returned when an operation is invoked without a state.
	ErrNilState = errors.New("subscription: state not configured")
	// ErrInvalidAddress is returned for blank subscriber identifiers.
	ErrInvalidAddress = errors.New("subscription: address required")
	// ErrInvalidDuration is returned when the subscription length is not a
	// positive number of days.
	ErrInvalidDuration = errors.New("subscription: subscription days must be positive")
	// ErrDuplicateSubscriber is returned when an address is admitted twice
	// into the same state.
	ErrDuplicateSubscriber = errors.New("subscription: subscriber already admitted")
	// ErrSubscriberNotFound distinguishes unknown addresses from a computed zero.
	ErrSubscriberNotFound = errors.New("subscription: subscriber not found")
	// ErrNoShares is returned when the pool has no share weight to divide by.
	ErrNoShares = errors.New("subscription: pool has no shares")
	// ErrZeroSpend is returned when ROI is requested for a subscriber that
	// paid nothing.
	ErrZeroSpend = errors.New("subscription: subscriber spent nothing")
)
