package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"alertstreams/internal/feed"
)

// heartbeatInterval gates heartbeat logging: high-frequency heartbeat
// topics would otherwise flood the logs, but emitting every Nth proves
// the listener is alive.
const heartbeatInterval = 1000

// heartbeat is the payload published on feed heartbeat topics.
type heartbeat struct {
	Timestamp int64 `json:"timestamp"` // microseconds since epoch
	Count     int64 `json:"count"`
}

// HeartbeatHandler decodes a feed heartbeat and logs every
// heartbeatInterval-th one.
func HeartbeatHandler(payload []byte, md feed.Metadata) error {
	var hb heartbeat
	if err := json.Unmarshal(payload, &hb); err != nil {
		return fmt.Errorf("failed to unmarshal heartbeat: %w", err)
	}

	if hb.Count%heartbeatInterval != 0 {
		return nil
	}

	slog.Info("Feed heartbeat",
		"topic", md.Topic,
		"timestamp", time.UnixMicro(hb.Timestamp).UTC().Format(time.RFC3339),
		"count", hb.Count,
	)
	return nil
}
