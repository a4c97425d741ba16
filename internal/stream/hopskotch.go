package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"alertstreams/internal/config"
	"alertstreams/internal/dispatch"
	"alertstreams/internal/feed"

	"github.com/google/uuid"
)

var (
	hopskotchAllowedKeys  = []string{"URL", "USERNAME", "PASSWORD", "TOPICS", "START_POSITION"}
	hopskotchRequiredKeys = []string{"URL", "USERNAME", "PASSWORD"}
)

// Hopskotch consumes a Hopskotch-style feed: the connection target is a
// URL carrying the topic list on its path, and credentials come from
// the configuration options.
type Hopskotch struct {
	url      string
	username string
	password string
	topics   []string

	opener     feed.Opener
	dispatcher *dispatch.Dispatcher
}

// NewHopskotch builds a Hopskotch stream from a configuration entry.
func NewHopskotch(entry config.StreamEntry) (AlertStream, error) {
	opts, err := buildOptions("hopskotch", entry.Options, hopskotchAllowedKeys, hopskotchRequiredKeys)
	if err != nil {
		return nil, err
	}

	s := &Hopskotch{}
	s.url, _ = opts.String("url")
	s.username, _ = opts.String("username")
	s.password, _ = opts.String("password")
	s.topics, _ = opts.Strings("topics")

	startOffset := feed.StartLatest
	if position, ok := opts.String("start_position"); ok {
		switch strings.ToLower(position) {
		case "earliest":
			startOffset = feed.StartEarliest
		case "latest":
			startOffset = feed.StartLatest
		default:
			return nil, config.NewInvalidOption("hopskotch",
				fmt.Sprintf("START_POSITION must be \"earliest\" or \"latest\", got %q", position))
		}
	}

	s.opener = &feed.KafkaOpener{
		GroupID:     s.username + "-" + uuid.NewString(),
		StartOffset: startOffset,
	}
	s.dispatcher = dispatch.New(s.Name(), map[string]dispatch.Handler{
		"sys.heartbeat": dispatch.HeartbeatHandler,
	})
	return s, nil
}

// Name implements AlertStream.
func (s *Hopskotch) Name() string { return "hopskotch" }

// Target returns the base URL with the configured topics appended as a
// comma-separated list, in configuration order. Exactly one separator
// ends up between the base and the topic list whether or not the
// configured URL had a trailing slash.
func (s *Hopskotch) Target() string {
	target := s.url
	if !strings.HasSuffix(target, "/") {
		target += "/"
	}
	return target + strings.Join(s.topics, ",")
}

// Credentials implements AlertStream; Hopskotch authenticates with
// SCRAM using the username and password from the options.
func (s *Hopskotch) Credentials() feed.Credentials {
	return feed.Credentials{
		Username:  s.username,
		Password:  s.password,
		Mechanism: feed.MechanismScramSHA512,
	}
}

// SetRecorder implements AlertStream.
func (s *Hopskotch) SetRecorder(r dispatch.Recorder) {
	s.dispatcher.SetRecorder(r)
}

// Listen implements AlertStream. The topic subscription rides on the
// target URL, so no explicit Subscribe call is needed.
func (s *Hopskotch) Listen(ctx context.Context) error {
	target := s.Target()
	slog.Info("Opening alert stream",
		"stream", s.Name(),
		"target", target,
		"handled_topics", s.dispatcher.Topics(),
	)

	conn, err := s.opener.Open(ctx, target, s.Credentials())
	if err != nil {
		return fmt.Errorf("failed to open hopskotch stream: %w", err)
	}
	defer conn.Close()

	s.dispatcher.WarnUnhandled(s.topics)
	return listenLoop(ctx, conn, s.dispatcher)
}
