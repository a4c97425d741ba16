// Package dispatch routes received feed messages to topic handlers.
// A message on a topic with no handler is logged and dropped, and a
// failing or panicking handler never ends the receive loop; both are
// deliberate containment choices so one bad alert cannot take a whole
// listener down.
package dispatch

import (
	"fmt"
	"log/slog"

	"alertstreams/internal/feed"
)

// Handler processes one message from a single topic. Payloads are the
// feed's raw bytes; handlers own any decoding.
type Handler func(payload []byte, md feed.Metadata) error

// Recorder receives dispatch outcome counts. Implementations must be
// safe for use from the owning listener goroutine only.
type Recorder interface {
	MessageReceived(topic string)
	Unrouted(topic string)
	HandlerError(topic string)
}

// Dispatcher maps topic names to handlers for one stream. The table is
// fixed at construction; there is no registration API after start.
type Dispatcher struct {
	stream   string
	handlers map[string]Handler
	recorder Recorder
}

// New builds a dispatcher for the named stream over a static handler table.
func New(stream string, handlers map[string]Handler) *Dispatcher {
	table := make(map[string]Handler, len(handlers))
	for topic, h := range handlers {
		table[topic] = h
	}
	return &Dispatcher{stream: stream, handlers: table}
}

// SetRecorder attaches an outcome recorder. Must be called before the
// listener starts; a nil recorder disables counting.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// Dispatch routes one message to its topic handler, synchronously.
// It never returns an error and never panics: unrouted topics are
// warned and dropped, handler failures are logged and the loop goes on.
func (d *Dispatcher) Dispatch(msg *feed.Message) {
	topic := msg.Metadata.Topic
	if d.recorder != nil {
		d.recorder.MessageReceived(topic)
	}

	handler, ok := d.handlers[topic]
	if !ok {
		slog.Warn("Alert received for topic with no handler, dropping",
			"stream", d.stream,
			"topic", topic,
		)
		if d.recorder != nil {
			d.recorder.Unrouted(topic)
		}
		return
	}

	if err := d.invoke(handler, msg); err != nil {
		slog.Error("Alert handler failed",
			"stream", d.stream,
			"topic", topic,
			"error", err,
		)
		if d.recorder != nil {
			d.recorder.HandlerError(topic)
		}
	}
}

// invoke runs the handler with panic containment.
func (d *Dispatcher) invoke(handler Handler, msg *feed.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(msg.Payload, msg.Metadata)
}

// WarnUnhandled logs, once per topic, the subscribed topics that have
// no handler. Subscribing without a handler is legal (the messages are
// dropped) but usually a configuration oversight worth surfacing.
func (d *Dispatcher) WarnUnhandled(topics []string) {
	for _, topic := range topics {
		if _, ok := d.handlers[topic]; !ok {
			slog.Warn("Subscribed topic has no handler; its alerts will be dropped",
				"stream", d.stream,
				"topic", topic,
			)
		}
	}
}

// Topics returns the handled topic names, for logging.
func (d *Dispatcher) Topics() []string {
	topics := make([]string, 0, len(d.handlers))
	for topic := range d.handlers {
		topics = append(topics, topic)
	}
	return topics
}
