package feed

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

const (
	// ReadTimeout is the maximum time the reader waits for a fetch to fill.
	ReadTimeout = 10 * time.Second
	// CommitInterval is how often consumed offsets are committed.
	CommitInterval = 1 * time.Second
	// DialTimeout bounds the initial broker connection.
	DialTimeout = 10 * time.Second
)

// Start positions for a fresh consumer group.
const (
	StartEarliest = kafka.FirstOffset
	StartLatest   = kafka.LastOffset
)

// KafkaOpener opens Kafka-backed feed connections. GroupID names the
// consumer group for this stream; StartOffset applies only when the
// group has no committed offset yet.
type KafkaOpener struct {
	GroupID     string
	StartOffset int64
}

// Open parses the target, builds a SASL/TLS dialer from the credentials,
// and returns a connection. Targets may be a URL of the form
// kafka://host:port/topic1,topic2 (topics optional) or a bare
// comma-separated broker list, in which case topics must be supplied
// via Subscribe.
func (o *KafkaOpener) Open(ctx context.Context, target string, creds Credentials) (Conn, error) {
	brokers, topics, err := parseTarget(target)
	if err != nil {
		return nil, err
	}

	mechanism, err := saslMechanism(creds)
	if err != nil {
		return nil, err
	}

	dialer := &kafka.Dialer{
		Timeout:       DialTimeout,
		DualStack:     true,
		SASLMechanism: mechanism,
		TLS:           &tls.Config{},
	}

	// Fail fast on unreachable brokers or rejected credentials instead of
	// letting the reader retry forever in the background.
	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, fmt.Errorf("failed to connect to feed broker %s: %w", brokers[0], err)
	}
	conn.Close()

	startOffset := o.StartOffset
	if startOffset == 0 {
		startOffset = StartLatest
	}

	kc := &kafkaConn{
		brokers:     brokers,
		groupID:     o.GroupID,
		dialer:      dialer,
		startOffset: startOffset,
	}
	if len(topics) > 0 {
		if err := kc.Subscribe(topics); err != nil {
			return nil, err
		}
	}
	return kc, nil
}

// kafkaConn adapts a kafka-go Reader to the Conn interface.
type kafkaConn struct {
	brokers     []string
	groupID     string
	dialer      *kafka.Dialer
	startOffset int64
	reader      *kafka.Reader
}

// Subscribe creates the underlying reader for the given topics. The
// subscription is fixed for the life of the connection.
func (c *kafkaConn) Subscribe(topics []string) error {
	if c.reader != nil {
		return fmt.Errorf("feed connection is already subscribed")
	}
	if len(topics) == 0 {
		return fmt.Errorf("topics cannot be empty")
	}

	slog.Info("Subscribing to feed topics",
		"brokers", c.brokers,
		"group_id", c.groupID,
		"topics", topics,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.brokers,
		GroupID:        c.groupID,
		GroupTopics:    topics,
		Dialer:         c.dialer,
		MinBytes:       1,    // Return immediately when any data is available
		MaxBytes:       10e6, // 10MB
		MaxWait:        ReadTimeout,
		CommitInterval: CommitInterval,
		StartOffset:    c.startOffset,
	})
	return nil
}

// Read blocks for the next message. It returns ctx.Err() unwrapped when
// the context is cancelled so callers can distinguish shutdown from a
// transport failure.
func (c *kafkaConn) Read(ctx context.Context) (*Message, error) {
	if c.reader == nil {
		return nil, fmt.Errorf("feed connection has no topic subscription")
	}

	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read message from feed: %w", err)
	}

	return &Message{
		Payload: msg.Value,
		Metadata: Metadata{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Timestamp: msg.Time,
		},
	}, nil
}

// Close releases the reader and its group membership.
func (c *kafkaConn) Close() error {
	if c.reader == nil {
		return nil
	}
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing feed connection", "error", err)
		return err
	}
	return nil
}

// parseTarget splits a resolved target into brokers and topics.
// URL targets carry topics on the path as a comma-separated list in
// subscription order; bare targets are a comma-separated broker list.
func parseTarget(target string) ([]string, []string, error) {
	if target == "" {
		return nil, nil, fmt.Errorf("target cannot be empty")
	}

	if !strings.Contains(target, "://") {
		return splitList(target), nil, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid feed target %q: %w", target, err)
	}
	if u.Host == "" {
		return nil, nil, fmt.Errorf("feed target %q has no host", target)
	}

	var topics []string
	if path := strings.TrimPrefix(u.Path, "/"); path != "" {
		topics = splitList(path)
	}
	return []string{u.Host}, topics, nil
}

// splitList parses a comma-separated list and trims whitespace.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// saslMechanism builds the SASL mechanism for the credential set.
func saslMechanism(creds Credentials) (sasl.Mechanism, error) {
	switch creds.Mechanism {
	case MechanismScramSHA512:
		mechanism, err := scram.Mechanism(scram.SHA512, creds.Username, creds.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to build SCRAM mechanism: %w", err)
		}
		return mechanism, nil
	case MechanismPlain, "":
		return plain.Mechanism{Username: creds.Username, Password: creds.Password}, nil
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism %q", creds.Mechanism)
	}
}
