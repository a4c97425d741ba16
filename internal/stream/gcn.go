package stream

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"alertstreams/internal/config"
	"alertstreams/internal/dispatch"
	"alertstreams/internal/feed"

	"github.com/google/uuid"
)

const (
	gcnDefaultBroker = "kafka.gcn.nasa.gov:9092"

	// GCN Classic credentials come from the environment rather than the
	// configuration options, so stream definitions can be committed
	// without secrets.
	gcnEnvUsername = "GCN_CLASSIC_AUTH_USERNAME"
	gcnEnvPassword = "GCN_CLASSIC_AUTH_PASSWORD"
)

var (
	gcnAllowedKeys  = []string{"BROKER", "TOPICS", "GROUP_ID"}
	gcnRequiredKeys = []string{"TOPICS"}
)

// GCNClassic consumes the GCN Classic feed: the target is a bare broker
// address and topics are subscribed explicitly rather than encoded on
// the target.
type GCNClassic struct {
	broker string
	topics []string
	creds  feed.Credentials

	opener     feed.Opener
	dispatcher *dispatch.Dispatcher
}

// NewGCNClassic builds a GCN Classic stream from a configuration entry.
// Missing credential environment variables are a construction-time
// error naming exactly the variable that is absent.
func NewGCNClassic(entry config.StreamEntry) (AlertStream, error) {
	opts, err := buildOptions("gcn-classic", entry.Options, gcnAllowedKeys, gcnRequiredKeys)
	if err != nil {
		return nil, err
	}

	s := &GCNClassic{broker: gcnDefaultBroker}
	if broker, ok := opts.String("broker"); ok {
		s.broker = broker
	}
	s.topics, _ = opts.Strings("topics")
	if len(s.topics) == 0 {
		return nil, config.NewInvalidOption("gcn-classic", "TOPICS must be a non-empty list of topic names")
	}

	username, ok := os.LookupEnv(gcnEnvUsername)
	if !ok {
		return nil, config.NewMissingEnv("gcn-classic", gcnEnvUsername)
	}
	password, ok := os.LookupEnv(gcnEnvPassword)
	if !ok {
		return nil, config.NewMissingEnv("gcn-classic", gcnEnvPassword)
	}
	s.creds = feed.Credentials{
		Username:  username,
		Password:  password,
		Mechanism: feed.MechanismPlain,
	}

	groupID, ok := opts.String("group_id")
	if !ok {
		groupID = username + "-" + uuid.NewString()
	}
	s.opener = &feed.KafkaOpener{
		GroupID:     groupID,
		StartOffset: feed.StartLatest,
	}
	s.dispatcher = dispatch.New(s.Name(), map[string]dispatch.Handler{
		"gcn.heartbeat": dispatch.HeartbeatHandler,
	})
	return s, nil
}

// Name implements AlertStream.
func (s *GCNClassic) Name() string { return "gcn-classic" }

// Target implements AlertStream; for a credential-only variant this is
// simply the broker address.
func (s *GCNClassic) Target() string { return s.broker }

// Credentials implements AlertStream.
func (s *GCNClassic) Credentials() feed.Credentials { return s.creds }

// SetRecorder implements AlertStream.
func (s *GCNClassic) SetRecorder(r dispatch.Recorder) {
	s.dispatcher.SetRecorder(r)
}

// Listen implements AlertStream.
func (s *GCNClassic) Listen(ctx context.Context) error {
	slog.Info("Opening alert stream",
		"stream", s.Name(),
		"target", s.broker,
		"topics", s.topics,
	)

	conn, err := s.opener.Open(ctx, s.Target(), s.Credentials())
	if err != nil {
		return fmt.Errorf("failed to open gcn-classic stream: %w", err)
	}
	defer conn.Close()

	if err := conn.Subscribe(s.topics); err != nil {
		return fmt.Errorf("failed to subscribe gcn-classic topics: %w", err)
	}

	s.dispatcher.WarnUnhandled(s.topics)
	return listenLoop(ctx, conn, s.dispatcher)
}
