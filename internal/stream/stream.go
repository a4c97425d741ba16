// Package stream defines the alert stream capability, its concrete
// variants, and the registry that turns raw configuration entries into
// live stream instances.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"alertstreams/internal/config"
	"alertstreams/internal/dispatch"
	"alertstreams/internal/feed"
)

// AlertStream is one configured feed. Instances are built once by the
// registry at startup and then listened to for the process lifetime.
type AlertStream interface {
	// Name identifies the stream variant, for supervisor logs.
	Name() string

	// Target returns the fully-formed connection target.
	Target() string

	// Credentials returns the secret material resolved at construction.
	Credentials() feed.Credentials

	// SetRecorder attaches a dispatch outcome recorder. Must be called
	// before Listen.
	SetRecorder(r dispatch.Recorder)

	// Listen opens the feed connection and consumes messages until the
	// context is cancelled (returning nil) or the transport fails
	// (returning the failure). It does not return under normal operation.
	Listen(ctx context.Context) error
}

// Constructor builds one stream variant from a raw configuration entry.
type Constructor func(entry config.StreamEntry) (AlertStream, error)

var variants = map[string]Constructor{}

// Register adds a stream variant under the given tag. Intended to be
// called from package init functions; duplicate tags are a programming
// error.
func Register(name string, ctor Constructor) {
	tag := strings.ToLower(name)
	if _, exists := variants[tag]; exists {
		panic(fmt.Sprintf("stream variant %q registered twice", tag))
	}
	variants[tag] = ctor
}

func init() {
	Register("hopskotch", NewHopskotch)
	Register("gcn-classic", NewGCNClassic)
}

// Build constructs stream instances from configuration entries, in
// entry order. Inactive entries are skipped; an unknown variant name or
// a failing constructor aborts the whole build, since a broken stream
// entry is an operator error worth surfacing immediately.
func Build(entries []config.StreamEntry) ([]AlertStream, error) {
	streams := make([]AlertStream, 0, len(entries))
	for _, entry := range entries {
		if !entry.Active() {
			slog.Debug("Ignoring inactive stream", "stream", entry.Name)
			continue
		}

		ctor, ok := variants[strings.ToLower(entry.Name)]
		if !ok {
			return nil, config.NewUnknownVariant(entry.Name)
		}

		s, err := ctor(entry)
		if err != nil {
			return nil, err
		}
		streams = append(streams, s)
	}
	return streams, nil
}

// listenLoop is the shared receive loop: strictly sequential, one
// message at a time in arrival order, dispatched synchronously. It
// returns nil on context cancellation and the transport error on
// anything else.
func listenLoop(ctx context.Context, conn feed.Conn, dispatcher *dispatch.Dispatcher) error {
	for {
		msg, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		dispatcher.Dispatch(msg)
	}
}
