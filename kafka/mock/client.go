package mockkafka

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/hugolhafner/streamtable/kafka"
)

var _ kafka.Client = (*Client)(nil)

// ProducedRecord represents a record that was sent via the mock producer.
type ProducedRecord struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers []kafka.Header
}

// Client is an in-memory kafka.Client for tests. Records are queued per
// topic with AddMessages and handed out by Poll in queue order; commits are
// recorded as a history so tests can assert on ordering and monotonicity.
type Client struct {
	mu sync.Mutex

	queues     map[string][]kafka.Message
	positions  map[string]int
	nextOffset map[string]int64

	subscriptions []string
	pattern       *regexp.Regexp
	subscribed    bool

	committed []int64
	produced  []ProducedRecord

	maxPollRecords int
	pollDelay      time.Duration

	sendErr   func(topic string, key, value []byte) error
	pollErr   func() error
	commitErr func() error
	pingErr   error

	closed bool
}

type Option func(*Client)

// WithPollDelay makes each Poll wait for d before returning, simulating a
// backend that blocks while no records are available.
func WithPollDelay(d time.Duration) Option {
	return func(c *Client) {
		c.pollDelay = d
	}
}

func WithMaxPollRecords(n int) Option {
	return func(c *Client) {
		c.maxPollRecords = n
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		queues:         make(map[string][]kafka.Message),
		positions:      make(map[string]int),
		nextOffset:     make(map[string]int64),
		maxPollRecords: 10,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Subscribe(topics []string, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscribed {
		return nil // idempotent
	}

	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return err
		}
		c.pattern = re
	}

	c.subscriptions = topics
	c.subscribed = true

	return nil
}

func (c *Client) matchesLocked(topic string) bool {
	if c.pattern != nil {
		return c.pattern.MatchString(topic)
	}
	for _, t := range c.subscriptions {
		if t == topic {
			return true
		}
	}
	return false
}

func (c *Client) Poll(ctx context.Context) ([]kafka.Message, error) {
	if c.pollDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollDelay):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pollErr != nil {
		if err := c.pollErr(); err != nil {
			return nil, err
		}
	}

	var records []kafka.Message
	for topic, queue := range c.queues {
		if !c.matchesLocked(topic) {
			continue
		}

		pos := c.positions[topic]
		for pos < len(queue) && len(records) < c.maxPollRecords {
			records = append(records, queue[pos])
			pos++
		}
		c.positions[topic] = pos

		if len(records) >= c.maxPollRecords {
			break
		}
	}

	return records, nil
}

func (c *Client) Commit(ctx context.Context, offset int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if c.commitErr != nil {
		if err := c.commitErr(); err != nil {
			return err
		}
	}

	c.committed = append(c.committed, offset)

	return nil
}

func (c *Client) Send(ctx context.Context, topic string, key, value []byte, headers []kafka.Header) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErr != nil {
		if err := c.sendErr(topic, key, value); err != nil {
			return err
		}
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	headersCopy := make([]kafka.Header, len(headers))
	for i, h := range headers {
		vCopy := make([]byte, len(h.Value))
		copy(vCopy, h.Value)
		headersCopy[i] = kafka.Header{Key: h.Key, Value: vCopy}
	}

	c.produced = append(
		c.produced, ProducedRecord{
			Topic:   topic,
			Key:     keyCopy,
			Value:   valueCopy,
			Headers: headersCopy,
		},
	)

	return nil
}

// Flush is a no-op for the mock client since Send is synchronous.
func (c *Client) Flush(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pingErr
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
}

// AddMessages queues messages to be returned by Poll for a topic. Offsets
// are assigned sequentially per topic unless a message carries one already.
func (c *Client) AddMessages(topic string, msgs ...kafka.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range msgs {
		if msgs[i].Topic == "" {
			msgs[i].Topic = topic
		}
		if msgs[i].Offset == 0 && c.nextOffset[topic] != 0 {
			msgs[i].Offset = c.nextOffset[topic]
		}
		if msgs[i].Offset >= c.nextOffset[topic] {
			c.nextOffset[topic] = msgs[i].Offset + 1
		}
		if msgs[i].Timestamp.IsZero() {
			msgs[i].Timestamp = time.Now()
		}
	}

	c.queues[topic] = append(c.queues[topic], msgs...)
}

// SetSendError configures an error to be returned on all Send calls.
// Pass nil to clear the error.
func (c *Client) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.sendErr = nil
	} else {
		c.sendErr = func(string, []byte, []byte) error { return err }
	}
}

// SetPollError configures an error to be returned on all Poll calls.
func (c *Client) SetPollError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.pollErr = nil
	} else {
		c.pollErr = func() error { return err }
	}
}

// SetCommitError configures an error to be returned on all Commit calls.
func (c *Client) SetCommitError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.commitErr = nil
	} else {
		c.commitErr = func() error { return err }
	}
}

// SetCommitErrorFunc configures a function to determine Commit errors.
func (c *Client) SetCommitErrorFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commitErr = fn
}

func (c *Client) SetPingError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pingErr = err
}

// CommittedOffsets returns every offset passed to Commit, in call order.
func (c *Client) CommittedOffsets() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]int64, len(c.committed))
	copy(result, c.committed)
	return result
}

// LastCommitted returns the most recently committed offset.
func (c *Client) LastCommitted() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.committed) == 0 {
		return 0, false
	}
	return c.committed[len(c.committed)-1], true
}

// ProducedRecords returns a copy of all records that have been sent via Send.
func (c *Client) ProducedRecords() []ProducedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]ProducedRecord, len(c.produced))
	copy(result, c.produced)
	return result
}

// ProducedRecordsForTopic returns all records produced to a specific topic.
func (c *Client) ProducedRecordsForTopic(topic string) []ProducedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []ProducedRecord
	for _, r := range c.produced {
		if r.Topic == topic {
			result = append(result, r)
		}
	}
	return result
}

// Subscriptions returns the topics the client is subscribed to.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]string, len(c.subscriptions))
	copy(result, c.subscriptions)
	return result
}

// IsClosed returns whether Close has been called.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}
