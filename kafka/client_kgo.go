package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hugolhafner/streamtable/logger"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

var _ Client = (*KgoClient)(nil)

type KgoClientConfig struct {
	GroupID              string
	SessionTimeout       time.Duration
	HeartbeatInterval    time.Duration
	MaxPollRecords       int
	PollTimeout          time.Duration
	PatternSubscriptions bool

	Logger logger.Logger
}

func defaultConfig() KgoClientConfig {
	return KgoClientConfig{
		GroupID:           "default-group",
		SessionTimeout:    45 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		PollTimeout:       3 * time.Second,
		MaxPollRecords:    10,
		Logger:            logger.NewNoopLogger(),
	}
}

type KgoOption func(*KgoClientConfig)

func WithGroupID(id string) KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.GroupID = id
	}
}

func WithPollTimeout(d time.Duration) KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.PollTimeout = d
	}
}

func WithMaxPollRecords(n int) KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.MaxPollRecords = n
	}
}

// WithPatternSubscriptions enables regex topic subscriptions. kgo interprets
// consumed topics as patterns client-wide, so it must be chosen at connect
// time.
func WithPatternSubscriptions() KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.PatternSubscriptions = true
	}
}

func WithLogger(l logger.Logger) KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.Logger = l.
			With("client", "kgo")
	}
}

// KgoClient adapts a franz-go client to the Client boundary. Commit applies
// the safe offset to every partition the client has polled records from; the
// runtime consumes changelog-style streams where one consumer observes one
// partition per topic.
type KgoClient struct {
	client *kgo.Client
	config KgoClientConfig

	mu         sync.Mutex
	subscribed bool
	seen       map[string]map[int32]struct{}

	logger logger.Logger
}

// Connect dials the brokers in url (comma-separated host:port list) and
// returns a client ready to subscribe or produce.
func Connect(url string, opts ...KgoOption) (*KgoClient, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	kc := &KgoClient{
		config: cfg,
		seen:   make(map[string]map[int32]struct{}),
		logger: cfg.Logger,
	}

	kgoOpts := []kgo.Opt{
		kgo.SeedBrokers(strings.Split(url, ",")...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.WithLogger(newKgoLogger(kc.logger)),
		kgo.SessionTimeout(cfg.SessionTimeout),
		kgo.HeartbeatInterval(cfg.HeartbeatInterval),
		kgo.DisableAutoCommit(),
	}
	if cfg.PatternSubscriptions {
		kgoOpts = append(kgoOpts, kgo.ConsumeRegex())
	}

	client, err := kgo.NewClient(kgoOpts...)
	if err != nil {
		return nil, fmt.Errorf("create kgo client: %w", err)
	}

	kc.client = client

	return kc, nil
}

func (k *KgoClient) Subscribe(topics []string, pattern string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.subscribed {
		return fmt.Errorf("already subscribed")
	}

	if pattern != "" {
		if !k.config.PatternSubscriptions {
			return fmt.Errorf("pattern subscriptions require WithPatternSubscriptions at connect time")
		}
		k.client.AddConsumeTopics(pattern)
	} else {
		k.client.AddConsumeTopics(topics...)
	}
	k.subscribed = true

	return nil
}

func (k *KgoClient) Poll(ctx context.Context) ([]Message, error) {
	ctx, cancel := context.WithTimeout(ctx, k.config.PollTimeout)
	defer cancel()

	fetches := k.client.PollRecords(ctx, k.config.MaxPollRecords)
	if errs := fetches.Errors(); len(errs) > 0 {
		for _, err := range errs {
			if !errors.Is(err.Err, context.DeadlineExceeded) && !errors.Is(err.Err, context.Canceled) {
				return nil, fmt.Errorf("poll: %w", err.Err)
			}
		}
	}

	records := fetches.Records()
	k.observePartitions(records)

	return convertRecords(records), nil
}

func (k *KgoClient) observePartitions(records []*kgo.Record) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, r := range records {
		partitions, ok := k.seen[r.Topic]
		if !ok {
			partitions = make(map[int32]struct{})
			k.seen[r.Topic] = partitions
		}
		partitions[r.Partition] = struct{}{}
	}
}

func (k *KgoClient) Commit(ctx context.Context, offset int64) error {
	k.mu.Lock()
	uncommitted := make(map[string]map[int32]kgo.EpochOffset, len(k.seen))
	for topic, partitions := range k.seen {
		po := make(map[int32]kgo.EpochOffset, len(partitions))
		for p := range partitions {
			// committed offset is the next one to consume
			po[p] = kgo.EpochOffset{Epoch: -1, Offset: offset + 1}
		}
		uncommitted[topic] = po
	}
	k.mu.Unlock()

	if len(uncommitted) == 0 {
		return nil
	}

	var commitErr error
	k.client.CommitOffsetsSync(
		ctx, uncommitted,
		func(_ *kgo.Client, _ *kmsg.OffsetCommitRequest, resp *kmsg.OffsetCommitResponse, err error) {
			if err != nil {
				commitErr = err
				return
			}

			for _, t := range resp.Topics {
				for _, p := range t.Partitions {
					if ke := kerr.ErrorForCode(p.ErrorCode); ke != nil {
						commitErr = fmt.Errorf("commit %s[%d]: %w", t.Topic, p.Partition, ke)
						return
					}
				}
			}
		},
	)

	return commitErr
}

func (k *KgoClient) Send(ctx context.Context, topic string, key, value []byte, headers []Header) error {
	record := &kgo.Record{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: convertToKgoHeaders(headers),
	}

	k.logger.Debug("Sending record", "topic", topic, "key", string(key))

	results := k.client.ProduceSync(ctx, record)
	return results.FirstErr()
}

func (k *KgoClient) Flush(ctx context.Context) error {
	return k.client.Flush(ctx)
}

func (k *KgoClient) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

func (k *KgoClient) Close() {
	k.client.CloseAllowingRebalance()
}

func convertRecords(records []*kgo.Record) []Message {
	converted := make([]Message, len(records))
	for i, r := range records {
		converted[i] = Message{
			Topic:     r.Topic,
			Offset:    r.Offset,
			Key:       r.Key,
			Value:     r.Value,
			Headers:   convertFromKgoHeaders(r.Headers),
			Timestamp: r.Timestamp,
		}
	}

	return converted
}

func convertFromKgoHeaders(headers []kgo.RecordHeader) []Header {
	converted := make([]Header, len(headers))
	for i, h := range headers {
		converted[i] = Header{Key: h.Key, Value: h.Value}
	}
	return converted
}

func convertToKgoHeaders(headers []Header) []kgo.RecordHeader {
	kgoHeaders := make([]kgo.RecordHeader, len(headers))
	for i, h := range headers {
		kgoHeaders[i] = kgo.RecordHeader{Key: h.Key, Value: h.Value}
	}
	return kgoHeaders
}
