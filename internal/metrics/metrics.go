// Package metrics reports per-stream listener counters to Redis so
// operators can watch liveness centrally. Only operational counts are
// written; alert payloads never leave the dispatch path.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for supervisor metrics.
	KeyPrefix = "metrics:"
	// TTL is how long a report stays in Redis if not refreshed, so a
	// dead supervisor ages out instead of reporting stale health.
	TTL = 2 * time.Minute
	// DefaultReportInterval is how often reports are written.
	DefaultReportInterval = 30 * time.Second
)

// StreamCounters holds the dispatch counters for one stream. It
// implements dispatch.Recorder.
type StreamCounters struct {
	received      atomic.Uint64
	unrouted      atomic.Uint64
	handlerErrors atomic.Uint64
}

// MessageReceived counts one message read from the feed.
func (c *StreamCounters) MessageReceived(topic string) { c.received.Add(1) }

// Unrouted counts one message dropped for lack of a handler.
func (c *StreamCounters) Unrouted(topic string) { c.unrouted.Add(1) }

// HandlerError counts one failed handler invocation.
func (c *StreamCounters) HandlerError(topic string) { c.handlerErrors.Add(1) }

// StreamReport is the serialized form of one stream's counters.
type StreamReport struct {
	Received      uint64 `json:"received"`
	Unrouted      uint64 `json:"unrouted"`
	HandlerErrors uint64 `json:"handler_errors"`
}

// Report is the document written to Redis on each interval.
type Report struct {
	ServiceName string                  `json:"service_name"`
	StartedAt   time.Time               `json:"started_at"`
	LastUpdated time.Time               `json:"last_updated"`
	Streams     map[string]StreamReport `json:"streams"`
}

// Collector aggregates stream counters and periodically writes a report
// to Redis under a TTL'd key.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	mu      sync.RWMutex
	streams map[string]*StreamCounters

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCollector creates a collector reporting under the given service name.
func NewCollector(serviceName string, redisClient *redis.Client) *Collector {
	return &Collector{
		serviceName:    serviceName,
		redis:          redisClient,
		startedAt:      time.Now().UTC(),
		reportInterval: DefaultReportInterval,
		streams:        make(map[string]*StreamCounters),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval overrides the reporting interval. Call before Start.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.reportInterval = interval
}

// Stream returns the counter set for the named stream, creating it on
// first use.
func (c *Collector) Stream(name string) *StreamCounters {
	c.mu.Lock()
	defer c.mu.Unlock()
	counters, ok := c.streams[name]
	if !ok {
		counters = &StreamCounters{}
		c.streams[name] = counters
	}
	return counters
}

// Start begins periodic reporting in a background goroutine. The
// goroutine exits when ctx is cancelled or Stop is called, writing one
// final report either way.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.write(context.Background())
				return
			case <-c.stopCh:
				c.write(context.Background())
				return
			case <-ticker.C:
				c.write(ctx)
			}
		}
	}()
}

// Stop ends reporting and waits for the final write.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// snapshot builds the current report.
func (c *Collector) snapshot() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report := Report{
		ServiceName: c.serviceName,
		StartedAt:   c.startedAt,
		LastUpdated: time.Now().UTC(),
		Streams:     make(map[string]StreamReport, len(c.streams)),
	}
	for name, counters := range c.streams {
		report.Streams[name] = StreamReport{
			Received:      counters.received.Load(),
			Unrouted:      counters.unrouted.Load(),
			HandlerErrors: counters.handlerErrors.Load(),
		}
	}
	return report
}

func (c *Collector) write(ctx context.Context) {
	report := c.snapshot()
	data, err := json.Marshal(report)
	if err != nil {
		slog.Error("Failed to marshal metrics report", "error", err)
		return
	}

	key := KeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, TTL).Err(); err != nil {
		slog.Error("Failed to write metrics report to Redis",
			"key", key,
			"error", err,
		)
	}
}
