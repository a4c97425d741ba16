package stream

import (
	"context"
	"errors"

	"alertstreams/internal/feed"
)

// errFeedClosed ends fake read loops once the queued messages run out.
var errFeedClosed = errors.New("feed closed")

// fakeConn replays a fixed message sequence and then fails like a
// disconnected transport.
type fakeConn struct {
	messages   []*feed.Message
	subscribed []string
	closed     bool
}

func (c *fakeConn) Subscribe(topics []string) error {
	if c.subscribed != nil {
		return errors.New("already subscribed")
	}
	c.subscribed = topics
	return nil
}

func (c *fakeConn) Read(ctx context.Context) (*feed.Message, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(c.messages) == 0 {
		return nil, errFeedClosed
	}
	msg := c.messages[0]
	c.messages = c.messages[1:]
	return msg, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeOpener hands out a prepared connection and records how it was
// opened.
type fakeOpener struct {
	conn    *fakeConn
	openErr error

	target string
	creds  feed.Credentials
}

func (o *fakeOpener) Open(_ context.Context, target string, creds feed.Credentials) (feed.Conn, error) {
	o.target = target
	o.creds = creds
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.conn, nil
}
