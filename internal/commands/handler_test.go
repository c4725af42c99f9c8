package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesaa/arcbot/internal/diagnostics"
	arcerrors "github.com/vesaa/arcbot/internal/errors"
	"github.com/vesaa/arcbot/internal/gateway"
	"github.com/vesaa/arcbot/internal/latency"
)

const (
	channel = 77
	owner   = 182891574139682816
)

type fakeReporter struct {
	reqs []diagnostics.Request
	err  error
}

func (f *fakeReporter) Report(_ context.Context, req diagnostics.Request) (*diagnostics.Snapshot, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &diagnostics.Snapshot{ShardID: req.ShardID}, nil
}

type fakePrefixes struct {
	byGuild map[uint64]string
	err     error
}

func (f *fakePrefixes) Resolve(_ context.Context, guildID *uint64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if guildID == nil {
		return ".", nil
	}
	if p, ok := f.byGuild[*guildID]; ok {
		return p, nil
	}
	return ".", nil
}

type env struct {
	rec      *gateway.Recorder
	shards   *gateway.ShardManager
	reporter *fakeReporter
	deps     Deps
}

func newEnv() *env {
	rec := gateway.NewRecorder()
	shards := gateway.NewShardManager()
	shards.RecordHeartbeat(0, 42500*time.Microsecond, time.Now())
	reporter := &fakeReporter{}
	return &env{
		rec:      rec,
		shards:   shards,
		reporter: reporter,
		deps: Deps{
			Shards:    shards,
			Messenger: rec,
			Reporter:  reporter,
			Prefixes:  &fakePrefixes{byGuild: map[uint64]string{10: "!", 11: ""}},
			Owners:    []uint64{owner},
		},
	}
}

// steppedHandler advances its REST clock by step on every send.
func (e *env) steppedHandler(step time.Duration) *Handler {
	var (
		mu  sync.Mutex
		now = time.Unix(0, 0)
	)
	e.rec.OnSend = func(uint64, gateway.MessageData) error {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return nil
	}
	h := NewHandler(e.deps)
	h.prober = latency.NewProberWithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	return h
}

func lastContent(t *testing.T, rec *gateway.Recorder) string {
	t.Helper()
	msgs := rec.Messages(channel)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1].Content
}

func TestPing(t *testing.T) {
	for _, name := range []string{"ping", "pong", "latency", "PING"} {
		t.Run(name, func(t *testing.T) {
			e := newEnv()
			h := e.steppedHandler(31 * time.Millisecond)

			require.NoError(t, h.Dispatch(context.Background(), Invocation{Command: name, ChannelID: channel}))

			msgs := e.rec.Messages(channel)
			require.Len(t, msgs, 1, "the placeholder is edited in place")
			assert.Equal(t, "Ping?\nGateway: 42.50ms\nREST: 31ms", msgs[0].Content)
		})
	}
}

func TestPing_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		shards  func(*env)
		shardID uint32
		want    string
	}{
		{
			name:   "no shard manager",
			shards: func(e *env) { e.deps.Shards = nil },
			want:   "There was a problem getting the shard manager",
		},
		{name: "no runner", shardID: 3, want: "No shard found"},
		{
			name:    "no heartbeat yet",
			shards:  func(e *env) { e.shards.Register(2) },
			shardID: 2,
			want:    "Ping?\nGateway: ?ms\nREST: 5ms",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			if tt.shards != nil {
				tt.shards(e)
			}
			h := e.steppedHandler(5 * time.Millisecond)

			require.NoError(t, h.Dispatch(context.Background(), Invocation{Command: "ping", ChannelID: channel, ShardID: tt.shardID}))
			assert.Equal(t, tt.want, lastContent(t, e.rec))
		})
	}
}

func TestAbout(t *testing.T) {
	e := newEnv()
	h := NewHandler(e.deps)

	require.NoError(t, h.Dispatch(context.Background(), Invocation{Command: "info", ChannelID: channel, ShardID: 2}))
	require.Len(t, e.reporter.reqs, 1)
	assert.Equal(t, diagnostics.Request{ChannelID: channel, ShardID: 2}, e.reporter.reqs[0])
}

func TestAbout_NoShardManager(t *testing.T) {
	e := newEnv()
	e.deps.Shards = nil
	e.reporter.err = arcerrors.New(arcerrors.ErrCodeTransportUnavailable, "shard manager unavailable")

	require.NoError(t, NewHandler(e.deps).Dispatch(context.Background(), Invocation{Command: "about", ChannelID: channel}))
	assert.Equal(t, "There was a problem getting the shard manager", lastContent(t, e.rec))
}

func TestAbout_Failure(t *testing.T) {
	e := newEnv()
	e.reporter.err = arcerrors.New(arcerrors.ErrCodeSubprocessFailure, "helper exited with status 1")

	err := NewHandler(e.deps).Dispatch(context.Background(), Invocation{Command: "about", ChannelID: channel})
	require.Error(t, err)
	assert.True(t, arcerrors.HasCode(err, arcerrors.ErrCodeSubprocessFailure))
}

func TestPrefix(t *testing.T) {
	g10, g11, g12 := uint64(10), uint64(11), uint64(12)
	tests := []struct {
		name    string
		guildID *uint64
		want    string
	}{
		{"direct message", nil, "Current prefix:\n`.`"},
		{"configured", &g10, "Current prefix:\n`!`"},
		{"empty configured", &g11, "Current prefix:\n``"},
		{"default", &g12, "Current prefix:\n`.`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			require.NoError(t, NewHandler(e.deps).Dispatch(context.Background(),
				Invocation{Command: "prefixes", ChannelID: channel, GuildID: tt.guildID}))
			assert.Equal(t, tt.want, lastContent(t, e.rec))
		})
	}
}

func TestPrefix_StoreFailure(t *testing.T) {
	e := newEnv()
	e.deps.Prefixes = &fakePrefixes{err: arcerrors.New(arcerrors.ErrCodeStoreQueryFailure, "querying guild prefix")}
	g := uint64(10)

	err := NewHandler(e.deps).Dispatch(context.Background(), Invocation{Command: "prefix", ChannelID: channel, GuildID: &g})
	require.Error(t, err)
	assert.True(t, arcerrors.HasCode(err, arcerrors.ErrCodeStoreQueryFailure))
	assert.Empty(t, e.rec.Messages(channel))
}

func TestTest(t *testing.T) {
	e := newEnv()
	h := NewHandler(e.deps)

	err := h.Dispatch(context.Background(), Invocation{
		Command: "test", ChannelID: channel, AuthorID: owner,
		Args: "```json\n\"title\": \"hi\"\n```",
	})
	require.NoError(t, err)
	msgs := e.rec.Messages(channel)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Embed)
	assert.Equal(t, "hi", msgs[0].Embed.Title)
}

func TestTest_Refusals(t *testing.T) {
	e := newEnv()
	h := NewHandler(e.deps)
	ctx := context.Background()

	err := h.Dispatch(ctx, Invocation{Command: "test", ChannelID: channel, AuthorID: 1, Args: "{}"})
	assert.ErrorIs(t, err, ErrNotOwner)

	err = h.Dispatch(ctx, Invocation{Command: "test", ChannelID: channel, AuthorID: owner, Args: `"title": }`})
	assert.True(t, arcerrors.HasCode(err, arcerrors.ErrCodeMalformedPayload))

	assert.Empty(t, e.rec.Messages(channel))
}

func TestDispatch_Unknown(t *testing.T) {
	e := newEnv()
	err := NewHandler(e.deps).Dispatch(context.Background(), Invocation{Command: "invite", ChannelID: channel})
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDispatch_SendFailure(t *testing.T) {
	e := newEnv()
	e.rec.OnSend = func(uint64, gateway.MessageData) error { return errors.New("missing access") }

	err := NewHandler(e.deps).Dispatch(context.Background(), Invocation{Command: "ping", ChannelID: channel})
	assert.ErrorContains(t, err, "missing access")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"about", "ping", "prefix", "test"}, NewHandler(newEnv().deps).Names())
}
