// Package supervisor launches one listener goroutine per alert stream
// and monitors them until shutdown.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"

	"alertstreams/internal/stream"
)

// exit records one listener leaving its receive loop.
type exit struct {
	stream string
	err    error
}

// Supervisor owns the listener lifecycle for a fixed set of streams.
// Each stream is consumed by exactly one goroutine; there is no shared
// mutable state between listeners, so the supervisor itself only does
// spawn and shutdown bookkeeping.
type Supervisor struct {
	streams []stream.AlertStream
}

// New builds a supervisor over the constructed streams.
func New(streams []stream.AlertStream) *Supervisor {
	return &Supervisor{streams: streams}
}

// Run spawns one listener per stream and blocks until the context is
// cancelled or every listener has exited. A transport failure in one
// listener is logged and leaves the others running. On cancellation the
// remaining listeners are asked to stop and Run waits for each,
// logging its identity and exit status; shutdown latency is bounded by
// the transport's in-flight read honoring the cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.streams) == 0 {
		slog.Warn("No active streams configured, nothing to supervise")
		return nil
	}

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := make(chan exit, len(s.streams))
	for _, st := range s.streams {
		slog.Info("Starting stream listener",
			"stream", st.Name(),
			"target", st.Target(),
		)
		go func(st stream.AlertStream) {
			exits <- exit{stream: st.Name(), err: listen(listenCtx, st)}
		}(st)
	}

	running := len(s.streams)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutdown requested, stopping stream listeners", "running", running)
			cancel()
			for ; running > 0; running-- {
				logExit(<-exits)
			}
			slog.Info("All stream listeners stopped")
			return nil

		case e := <-exits:
			running--
			logExit(e)
			if running == 0 {
				slog.Warn("All stream listeners have exited")
				return nil
			}
		}
	}
}

// listen runs one stream's receive loop with panic containment, so a
// fault in one stream's transport or handlers cannot take down the
// supervisor or its siblings.
func listen(ctx context.Context, st stream.AlertStream) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return st.Listen(ctx)
}

func logExit(e exit) {
	if e.err != nil {
		slog.Error("Stream listener exited", "stream", e.stream, "error", e.err)
		return
	}
	slog.Info("Stream listener stopped", "stream", e.stream)
}
