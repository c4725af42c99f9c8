package diagnostics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	arcerrors "github.com/vesaa/arcbot/internal/errors"
	"github.com/vesaa/arcbot/internal/gateway"
	"github.com/vesaa/arcbot/internal/resources"
	"github.com/vesaa/arcbot/internal/sourcemetrics"
)

const channel = 55

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSampler struct {
	sample resources.MemorySample
	err    error
	onCall func()
	calls  atomic.Int32
}

func (f *fakeSampler) SampleMemory(context.Context, int) (resources.MemorySample, error) {
	f.calls.Add(1)
	if f.onCall != nil {
		f.onCall()
	}
	return f.sample, f.err
}

type fixture struct {
	clock   *manualClock
	rec     *gateway.Recorder
	shards  *gateway.ShardManager
	cache   *gateway.Cache
	sampler *fakeSampler
	opts    Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	manifest := filepath.Join(t.TempDir(), "arcbot.toml")
	require.NoError(t, os.WriteFile(manifest,
		[]byte("[package]\nname = \"arcbot\"\nversion = \"0.3.1\"\n"), 0o600))

	clock := &manualClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rec := gateway.NewRecorder()
	rec.OnSend = func(uint64, gateway.MessageData) error {
		clock.Advance(50 * time.Millisecond)
		return nil
	}

	shards := gateway.NewShardManager()
	shards.RecordHeartbeat(0, 42*time.Millisecond, clock.Now())

	cache := gateway.NewCache()
	cache.Replace(gateway.CacheState{
		Guilds:      map[uint64]int{1: 3, 2: 3, 3: 4},
		ShardCount:  1,
		CurrentUser: gateway.User{ID: 7, Name: "arcbot", AvatarURL: "https://cdn.example/avatar.png"},
		Owner:       gateway.User{ID: 9, Name: "vesa", Discriminator: "2207"},
	})

	sampler := &fakeSampler{sample: resources.MemorySample{TotalKB: 12345, BaselineKB: 6789}}

	f := &fixture{clock: clock, rec: rec, shards: shards, cache: cache, sampler: sampler}
	f.opts = Options{
		Shards:    shards,
		Cache:     cache,
		Messenger: rec,
		Sampler:   sampler,
		Scanner:   sourcemetrics.NewScanner("//arcbot:command", 2, nil),
		Source: fstest.MapFS{
			"commands/meta.go": {Data: []byte("package commands\n\n//arcbot:command\nfunc ping() {}\n")},
		},
		ManifestPath: manifest,
		StartedAt:    clock.Now().Add(-(26*time.Hour + 3*time.Minute + 4*time.Second)),
		PID:          4242,
		Clock:        clock.Now,
		Presentation: Presentation{URL: "https://github.com/vesaa/arcbot", Description: "General purpose chat bot."},
	}
	return f
}

func (f *fixture) composer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer(f.opts)
	require.NoError(t, err)
	return c
}

func TestReport_EndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	snap, err := f.composer(t).Report(context.Background(), Request{ChannelID: channel, ShardID: 0})
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, snap.REST)
	assert.Equal(t, "0.3.1", snap.Version)

	msgs := f.rec.Messages(channel)
	require.Len(t, msgs, 1, "the placeholder is edited, not replaced")
	assert.Empty(t, msgs[0].Content)
	require.NotNil(t, msgs[0].Embed)

	e := msgs[0].Embed
	assert.Equal(t, "**arcbot** - v0.3.1", e.Title)
	assert.Equal(t, "https://github.com/vesaa/arcbot", e.URL)
	assert.Equal(t, "Shards: 1\nGuilds: 3\nChannels: 10\nPrivate Channels: 0", Field(e, "Statistics:"))
	assert.Equal(t, "Blank: 1\nComment: 1\nCode: 2\nTotal Lines: 4", Field(e, "Lines of code:"))
	assert.Equal(t, "Tag: vesa#2207\nID: 9", Field(e, "Currently hosted by:"))
	assert.Equal(t, "Gateway:\n`42ms`\nREST:\n`50ms`", Field(e, "Latency:"))
	assert.Equal(t, "Complete:\n`12,345 KB`\nBase:\n`6,789 KB`", Field(e, "Memory usage:"))
	assert.Equal(t, "Command Count:\n`1`\nUptime:\n`1D 2:03:04`", Field(e, "Somewhat Static Stats:"))
	require.NotNil(t, e.Thumbnail)
	assert.Equal(t, "https://cdn.example/avatar.png", e.Thumbnail.URL)

	sends, edits := f.rec.Counts()
	assert.Equal(t, 1, sends)
	assert.Equal(t, 1, edits)
}

func TestCompose_Idempotent(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	c := f.composer(t)

	a, _, err := c.Compose(context.Background(), Request{ChannelID: channel})
	require.NoError(t, err)
	b, _, err := c.Compose(context.Background(), Request{ChannelID: channel})
	require.NoError(t, err)

	if diff := cmp.Diff(a, b, cmpopts.IgnoreFields(Snapshot{}, "REST", "Uptime")); diff != "" {
		t.Errorf("snapshots differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, int32(2), f.sampler.calls.Load(), "memory is sampled per request")
}

func TestCompose_PlaceholderBeforeSampling(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	var seen atomic.Int32
	f.sampler.onCall = func() {
		for _, m := range f.rec.Messages(channel) {
			if m.Content == Placeholder {
				seen.Add(1)
			}
		}
	}

	_, placeholder, err := f.composer(t).Compose(context.Background(), Request{ChannelID: channel})
	require.NoError(t, err)
	require.NotNil(t, placeholder)
	assert.Equal(t, Placeholder, placeholder.Content)
	assert.Equal(t, int32(1), seen.Load())
}

func TestCompose_NoShardManager(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	f.opts.Shards = nil

	_, _, err := f.composer(t).Compose(context.Background(), Request{ChannelID: channel})
	require.Error(t, err)
	assert.True(t, arcerrors.HasCode(err, arcerrors.ErrCodeTransportUnavailable))

	sends, _ := f.rec.Counts()
	assert.Zero(t, sends, "nothing is sent before the shard table is found")
	assert.Zero(t, f.sampler.calls.Load())
}

func TestReport_UnknownGatewayLatency(t *testing.T) {
	tests := []struct {
		name    string
		shardID uint32
		setup   func(*gateway.ShardManager)
	}{
		{name: "no runner for shard", shardID: 4},
		{name: "no heartbeat yet", shardID: 1, setup: func(m *gateway.ShardManager) { m.Register(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f.shards)
			}

			_, err := f.composer(t).Report(context.Background(), Request{ChannelID: channel, ShardID: tt.shardID})
			require.NoError(t, err)

			msgs := f.rec.Messages(channel)
			require.Len(t, msgs, 1)
			assert.Equal(t, "Gateway:\n`?ms`\nREST:\n`50ms`", Field(msgs[0].Embed, "Latency:"))
		})
	}
}

func TestReport_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fixture)
		code   arcerrors.ErrorCode
	}{
		{
			name: "memory helper fails",
			mutate: func(f *fixture) {
				f.sampler.err = arcerrors.New(arcerrors.ErrCodeSubprocessFailure, "helper exited with status 1")
			},
			code: arcerrors.ErrCodeSubprocessFailure,
		},
		{
			name: "manifest missing",
			mutate: func(f *fixture) {
				f.opts.ManifestPath = filepath.Join(t.TempDir(), "missing.toml")
			},
			code: arcerrors.ErrCodeFileAccessFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)
			f := newFixture(t)
			tt.mutate(f)

			snap, err := f.composer(t).Report(context.Background(), Request{ChannelID: channel})
			require.Error(t, err)
			assert.Nil(t, snap)
			assert.True(t, arcerrors.HasCode(err, tt.code), "got %v", err)

			msgs := f.rec.Messages(channel)
			require.Len(t, msgs, 1)
			assert.Equal(t, Placeholder, msgs[0].Content, "placeholder stays in the calculating state")
			_, edits := f.rec.Counts()
			assert.Zero(t, edits)
		})
	}
}

func TestCompose_PlaceholderSendFails(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	f.rec.OnSend = func(uint64, gateway.MessageData) error { return errors.New("missing permissions") }

	_, placeholder, err := f.composer(t).Compose(context.Background(), Request{ChannelID: channel})
	require.Error(t, err)
	assert.Nil(t, placeholder)
	assert.Contains(t, err.Error(), "missing permissions")
	assert.Zero(t, f.sampler.calls.Load())
}

func TestNewComposer_Validation(t *testing.T) {
	f := newFixture(t)
	f.opts.Messenger = nil
	_, err := NewComposer(f.opts)
	assert.Error(t, err)
}
