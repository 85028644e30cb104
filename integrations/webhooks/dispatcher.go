package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"subpool/core/scenario"
)

// EventType represents the logical webhook topic.
type EventType string

const (
	// EventScenarioCompleted is emitted after a scenario run finishes.
	EventScenarioCompleted EventType = "scenario.completed"

	// SignatureHeader carries the HMAC-SHA256 of the body.
	SignatureHeader = "X-Subpool-Signature"
	// EventHeader carries the event type.
	EventHeader = "X-Subpool-Event"

	defaultQueueSize   = 32
	defaultMaxAttempts = 5
	defaultMinBackoff  = 2 * time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// ErrQueueFull is returned instead of blocking the caller when the worker is
// backed up behind a slow endpoint.
var (
	ErrEndpointRequired = errors.New("webhook: endpoint required")
	ErrSecretRequired   = errors.New("webhook: secret required")
	ErrClosed           = errors.New("webhook: dispatcher closed")
	ErrQueueFull        = errors.New("webhook: delivery queue full")
)

// ScenarioCompletedPayload describes the webhook body for completed runs.
type ScenarioCompletedPayload struct {
	Type        EventType         `json:"type"`
	RunID       string            `json:"runId"`
	Scenario    string            `json:"scenario"`
	Fingerprint string            `json:"configFingerprint"`
	Months      int               `json:"months"`
	Final       scenario.Snapshot `json:"final"`
	Checksum    string            `json:"checksum"`
	GeneratedAt time.Time         `json:"generatedAt"`
	DeliveryID  string            `json:"deliveryId"`
}

// Dispatcher delivers webhooks from a single worker with retry and
// exponential backoff.
type Dispatcher struct {
	endpoint    string
	secret      []byte
	client      *http.Client
	logger      *slog.Logger
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	queueSize   int

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan delivery
	wg     sync.WaitGroup
}

type delivery struct {
	eventType EventType
	body      []byte
}

// Option mutates dispatcher configuration.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithLogger overrides the logger used to report failed deliveries.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithQueueSize overrides the number of deliveries buffered ahead of the
// worker.
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithRetryPolicy overrides the retry configuration.
func WithRetryPolicy(maxAttempts int, minBackoff, maxBackoff time.Duration) Option {
	return func(d *Dispatcher) {
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
		if minBackoff > 0 {
			d.minBackoff = minBackoff
		}
		if maxBackoff >= minBackoff && maxBackoff > 0 {
			d.maxBackoff = maxBackoff
		}
	}
}

// NewDispatcher constructs a dispatcher and spawns the worker goroutine.
func NewDispatcher(endpoint string, secret []byte, opts ...Option) (*Dispatcher, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	if len(secret) == 0 {
		return nil, ErrSecretRequired
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		endpoint:    endpoint,
		secret:      append([]byte(nil), secret...),
		client:      &http.Client{Timeout: 15 * time.Second},
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		queueSize:   defaultQueueSize,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan delivery, d.queueSize)
	d.wg.Add(1)
	go d.worker()
	return d, nil
}

// Close stops the dispatcher and waits for the inflight delivery to finish.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// EnqueueCompleted sends a completed-run event asynchronously. It never
// blocks: ErrQueueFull is returned when the queue has no room.
func (d *Dispatcher) EnqueueCompleted(payload ScenarioCompletedPayload) error {
	payload.Type = EventScenarioCompleted
	if payload.GeneratedAt.IsZero() {
		payload.GeneratedAt = time.Now().UTC()
	}
	if payload.DeliveryID == "" {
		payload.DeliveryID = uuid.NewString()
	}
	return d.enqueue(payload.Type, payload)
}

func (d *Dispatcher) enqueue(eventType EventType, body any) error {
	if d == nil {
		return errors.New("webhook: dispatcher not initialised")
	}
	if d.ctx.Err() != nil {
		return ErrClosed
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	select {
	case d.queue <- delivery{eventType: eventType, body: data}:
		return nil
	case <-d.ctx.Done():
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.queue:
			d.process(job)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) process(job delivery) {
	backoff := d.minBackoff
	for attempt := 1; ; attempt++ {
		err := d.attempt(job)
		if err == nil {
			return
		}
		if attempt >= d.maxAttempts {
			d.logger.Warn("webhook delivery abandoned",
				slog.String("event", string(job.eventType)),
				slog.Int("attempts", attempt),
				slog.Any("error", err))
			return
		}
		select {
		case <-time.After(backoff):
		case <-d.ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, d.maxBackoff)
	}
}

// attempt bounds one delivery by the client timeout when one is set.
func (d *Dispatcher) attempt(job delivery) error {
	if d.client.Timeout <= 0 {
		return d.send(d.ctx, job)
	}
	ctx, cancel := context.WithTimeout(d.ctx, d.client.Timeout)
	defer cancel()
	return d.send(ctx, job)
}

func (d *Dispatcher) send(ctx context.Context, job delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(job.body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, string(job.eventType))
	req.Header.Set(SignatureHeader, Sign(d.secret, job.body))
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook: delivery failed with status %d", resp.StatusCode)
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max || next < current {
		return max
	}
	return next
}
