// Package latency measures the two latencies the bot reports: the gateway
// heartbeat round trip, read from the shard table, and the REST round trip,
// timed around a caller-supplied probe call.
package latency

import (
	"context"
	"fmt"
	"time"

	arcerrors "github.com/vesaa/arcbot/internal/errors"
	"github.com/vesaa/arcbot/internal/gateway"
)

// Unknown is shown when a shard has not completed a heartbeat yet.
const Unknown = "?ms"

// ShardSource is the transport's safe-read accessor for the latency table.
// Implementations copy the sample out before returning.
type ShardSource interface {
	ShardLatency(shardID uint32) (gateway.ShardLatencySample, bool)
}

// Gateway returns the latest heartbeat sample for shardID without waiting
// for one. A sample with Measured == false means no heartbeat has completed.
// It fails with TransportUnavailable when there is no shard table or no
// runner for the shard.
func Gateway(src ShardSource, shardID uint32) (gateway.ShardLatencySample, error) {
	if src == nil {
		return gateway.ShardLatencySample{}, arcerrors.New(arcerrors.ErrCodeTransportUnavailable,
			"shard manager unavailable")
	}
	sample, ok := src.ShardLatency(shardID)
	if !ok {
		return gateway.ShardLatencySample{}, arcerrors.NewWithContext(arcerrors.ErrCodeTransportUnavailable,
			"no shard found", map[string]any{"shard_id": shardID})
	}
	return sample, nil
}

// Probe is a side-effecting network call whose round trip is measured.
type Probe func(ctx context.Context) error

// Prober times REST probes.
type Prober struct {
	now func() time.Time
}

// NewProber creates a Prober on the wall clock. Go's time.Now carries a
// monotonic reading, so elapsed times are immune to clock steps.
func NewProber() *Prober {
	return &Prober{now: time.Now}
}

// NewProberWithClock creates a Prober with an injected clock.
func NewProberWithClock(now func() time.Time) *Prober {
	return &Prober{now: now}
}

// MeasureREST invokes probe and returns how long it took to resolve.
// A probe error aborts the measurement.
func (p *Prober) MeasureREST(ctx context.Context, probe Probe) (time.Duration, error) {
	start := p.now()
	if err := probe(ctx); err != nil {
		return 0, fmt.Errorf("rest probe: %w", err)
	}
	return p.now().Sub(start), nil
}

// FormatPrecise renders a latency in milliseconds with two decimals,
// computed from microseconds: 42500µs -> "42.50ms".
func FormatPrecise(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
}

// FormatMillis renders a latency as whole milliseconds: "42ms".
func FormatMillis(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// FormatSample renders a gateway sample with format, or Unknown if the
// shard has no heartbeat yet.
func FormatSample(s gateway.ShardLatencySample, format func(time.Duration) string) string {
	if !s.Measured {
		return Unknown
	}
	return format(s.Heartbeat)
}
