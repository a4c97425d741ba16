// Package feed defines the boundary to the underlying pub/sub transport.
// Alert streams talk to their feed through the Opener and Conn interfaces
// so that the Kafka client can be swapped for a fake in tests.
package feed

import (
	"context"
	"time"
)

// SASL mechanisms supported by the Kafka feed client.
const (
	MechanismPlain       = "PLAIN"
	MechanismScramSHA512 = "SCRAM-SHA-512"
)

// Credentials holds the secret material needed to open a feed connection.
// The variant that owns the stream decides where these come from
// (configuration options or environment variables).
type Credentials struct {
	Username  string
	Password  string
	Mechanism string
}

// Metadata describes where a message came from. Topic is the only field
// the dispatch layer relies on; the rest is carried for logging.
type Metadata struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
}

// Message is one (payload, metadata) pair received from a feed.
// The payload is opaque to this system; it is routed, never transformed.
type Message struct {
	Payload  []byte
	Metadata Metadata
}

// Conn is a readable handle onto an open feed connection.
//
// Read blocks until a message arrives, the connection fails, or ctx is
// cancelled. Subscribe is used by variants whose target does not encode
// topics; it must be called before the first Read and at most once.
type Conn interface {
	Subscribe(topics []string) error
	Read(ctx context.Context) (*Message, error)
	Close() error
}

// Opener opens a feed connection for a fully-resolved target and
// credential set.
type Opener interface {
	Open(ctx context.Context, target string, creds Credentials) (Conn, error)
}
