// Package gateway holds the state arcbot shares with its event-stream
// transport: the per-shard heartbeat latency table, the client cache of
// guild/channel counts and identities, and the message surface replies are
// delivered through.
//
// The transport is the only writer. Readers use the copy-out accessors and
// never hold a lock across a blocking call.
package gateway

import (
	"sort"
	"sync"
	"time"
)

// ShardLatencySample is the latest heartbeat latency recorded for a shard.
// Measured is false until the first heartbeat has been acknowledged.
type ShardLatencySample struct {
	ShardID   uint32
	Heartbeat time.Duration
	Measured  bool
}

type runner struct {
	latency       time.Duration
	measured      bool
	lastHeartbeat time.Time
}

// ShardManager tracks the shard runners of this process.
type ShardManager struct {
	mu      sync.RWMutex
	runners map[uint32]*runner
}

// NewShardManager creates an empty shard table.
func NewShardManager() *ShardManager {
	return &ShardManager{runners: make(map[uint32]*runner)}
}

// Register adds a runner for shardID with no heartbeat sample yet.
// Registering an existing shard is a no-op.
func (m *ShardManager) Register(shardID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runners[shardID]; !ok {
		m.runners[shardID] = &runner{}
	}
}

// Remove drops the runner for shardID.
func (m *ShardManager) Remove(shardID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runners, shardID)
}

// RecordHeartbeat stores the round trip of an acknowledged heartbeat,
// registering the shard if needed.
func (m *ShardManager) RecordHeartbeat(shardID uint32, latency time.Duration, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runners[shardID]
	if !ok {
		r = &runner{}
		m.runners[shardID] = r
	}
	r.latency = latency
	r.measured = true
	r.lastHeartbeat = at
}

// ShardLatency copies out the latest sample for shardID. ok is false when
// no runner exists for the shard.
func (m *ShardManager) ShardLatency(shardID uint32) (sample ShardLatencySample, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runners[shardID]
	if !ok {
		return ShardLatencySample{}, false
	}
	return ShardLatencySample{ShardID: shardID, Heartbeat: r.latency, Measured: r.measured}, true
}

// Samples copies out every runner's sample ordered by shard id.
func (m *ShardManager) Samples() []ShardLatencySample {
	m.mu.RLock()
	out := make([]ShardLatencySample, 0, len(m.runners))
	for id, r := range m.runners {
		out = append(out, ShardLatencySample{ShardID: id, Heartbeat: r.latency, Measured: r.measured})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ShardID < out[j].ShardID })
	return out
}
