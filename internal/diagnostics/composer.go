// Package diagnostics assembles the bot's runtime report: gateway and REST
// latency, process memory, live source metrics, cached guild/channel/shard
// counts, version and uptime.
//
// A report is produced in two visible phases. A placeholder message is sent
// first, and its round trip is the REST latency. Only then do the slower
// measurements start; once all of them have finished the placeholder is
// edited in place into the final report. Nothing is cached between reports.
package diagnostics

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	arcerrors "github.com/vesaa/arcbot/internal/errors"
	"github.com/vesaa/arcbot/internal/gateway"
	"github.com/vesaa/arcbot/internal/latency"
	"github.com/vesaa/arcbot/internal/resources"
	"github.com/vesaa/arcbot/internal/sourcemetrics"
)

// Placeholder is the content of the acknowledgment message.
const Placeholder = "Calculating latency..."

// MemorySampler reads the process memory.
type MemorySampler interface {
	SampleMemory(ctx context.Context, pid int) (resources.MemorySample, error)
}

// SourceScanner computes source metrics over a tree.
type SourceScanner interface {
	Scan(ctx context.Context, fsys fs.FS) (sourcemetrics.Metrics, error)
}

// StatsSource copies out the cached client counts and identities.
type StatsSource interface {
	Stats() gateway.Stats
}

// Request identifies where a report was asked for.
type Request struct {
	ChannelID uint64
	ShardID   uint32
}

// Snapshot is one immutable diagnostics reading.
type Snapshot struct {
	Bot     gateway.User
	Hoster  gateway.User
	Version string
	Uptime  time.Duration

	ShardID uint32
	Gateway gateway.ShardLatencySample
	REST    time.Duration

	Guilds          int
	Channels        int
	PrivateChannels int
	Shards          int

	Memory resources.MemorySample
	Source sourcemetrics.Metrics
}

// Options wires a Composer to its collaborators.
type Options struct {
	Shards    latency.ShardSource // nil when the transport has no shard manager
	Cache     StatsSource
	Messenger gateway.Messenger
	Sampler   MemorySampler
	Scanner   SourceScanner

	// Source is the project's own source tree.
	Source       fs.FS
	ManifestPath string

	StartedAt time.Time
	// PID defaults to os.Getpid().
	PID int
	// Clock defaults to time.Now.
	Clock func() time.Time

	Presentation Presentation
	Logger       *zap.Logger
}

// Composer builds snapshots and delivers reports.
type Composer struct {
	opts   Options
	prober *latency.Prober
	log    *zap.Logger
}

// NewComposer validates opts and creates a Composer.
func NewComposer(opts Options) (*Composer, error) {
	switch {
	case opts.Cache == nil:
		return nil, fmt.Errorf("diagnostics: Cache is required")
	case opts.Messenger == nil:
		return nil, fmt.Errorf("diagnostics: Messenger is required")
	case opts.Sampler == nil:
		return nil, fmt.Errorf("diagnostics: Sampler is required")
	case opts.Scanner == nil:
		return nil, fmt.Errorf("diagnostics: Scanner is required")
	case opts.Source == nil:
		return nil, fmt.Errorf("diagnostics: Source is required")
	case opts.ManifestPath == "":
		return nil, fmt.Errorf("diagnostics: ManifestPath is required")
	}
	if opts.PID == 0 {
		opts.PID = os.Getpid()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = opts.Clock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Composer{
		opts:   opts,
		prober: latency.NewProberWithClock(opts.Clock),
		log:    opts.Logger.Named("diagnostics"),
	}, nil
}

// Compose gathers a snapshot for req. It returns the placeholder message it
// sent, also on errors that happen after the placeholder went out, so the
// caller knows a message is left in its "calculating" state.
//
// A missing shard manager aborts before anything is sent. A shard without a
// heartbeat, or without a runner, is reported as unknown latency.
func (c *Composer) Compose(ctx context.Context, req Request) (snap *Snapshot, placeholder *gateway.Message, err error) {
	start := time.Now()
	defer func() {
		composeDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			composeTotal.WithLabelValues("error").Inc()
			return
		}
		composeTotal.WithLabelValues("success").Inc()
	}()

	if c.opts.Shards == nil {
		return nil, nil, arcerrors.New(arcerrors.ErrCodeTransportUnavailable, "shard manager unavailable")
	}
	gw, gwErr := latency.Gateway(c.opts.Shards, req.ShardID)
	if gwErr != nil {
		c.log.Debug("no runner for shard", zap.Uint32("shard", req.ShardID), zap.Error(gwErr))
		gw = gateway.ShardLatencySample{ShardID: req.ShardID}
	}

	rest, err := c.prober.MeasureREST(ctx, func(ctx context.Context) error {
		msg, err := c.opts.Messenger.SendMessage(ctx, req.ChannelID, gateway.MessageData{Content: Placeholder})
		if err != nil {
			return err
		}
		placeholder = msg
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("sending placeholder: %w", err)
	}
	stepDuration.WithLabelValues("rest").Observe(rest.Seconds())

	stats := c.opts.Cache.Stats()
	snap = &Snapshot{
		Bot:             stats.CurrentUser,
		Hoster:          stats.Owner,
		Uptime:          c.opts.Clock().Sub(c.opts.StartedAt),
		ShardID:         req.ShardID,
		Gateway:         gw,
		REST:            rest,
		Guilds:          stats.Guilds,
		Channels:        stats.Channels,
		PrivateChannels: stats.PrivateChannels,
		Shards:          stats.Shards,
	}

	var (
		mem     resources.MemorySample
		source  sourcemetrics.Metrics
		version string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer observeStep("memory", time.Now())
		m, err := c.opts.Sampler.SampleMemory(gctx, c.opts.PID)
		if err != nil {
			return fmt.Errorf("sampling memory: %w", err)
		}
		mem = m
		return nil
	})
	g.Go(func() error {
		defer observeStep("source", time.Now())
		m, err := c.opts.Scanner.Scan(gctx, c.opts.Source)
		if err != nil {
			return fmt.Errorf("scanning source tree: %w", err)
		}
		source = m
		return nil
	})
	g.Go(func() error {
		defer observeStep("manifest", time.Now())
		v, err := ReadVersion(c.opts.ManifestPath)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	if err := g.Wait(); err != nil {
		c.log.Error("diagnostics snapshot failed",
			zap.Uint64("channel", req.ChannelID),
			zap.String("code", string(arcerrors.CodeOf(err))),
			zap.Error(err))
		return nil, placeholder, err
	}

	snap.Memory = mem
	snap.Source = source
	snap.Version = version
	scannedFiles.Set(float64(source.Files))

	c.log.Debug("diagnostics snapshot composed",
		zap.Uint64("channel", req.ChannelID),
		zap.Duration("rest", rest),
		zap.Duration("took", time.Since(start)))
	return snap, placeholder, nil
}

// Report composes a snapshot, renders it and edits the placeholder into the
// final report, so the channel sees a single message change state.
func (c *Composer) Report(ctx context.Context, req Request) (*Snapshot, error) {
	snap, placeholder, err := c.Compose(ctx, req)
	if err != nil {
		return nil, err
	}

	embed := Render(snap, c.opts.Presentation)
	if _, err := c.opts.Messenger.EditMessage(ctx, req.ChannelID, placeholder.ID, gateway.MessageData{Embed: embed}); err != nil {
		return snap, fmt.Errorf("editing report into placeholder: %w", err)
	}
	return snap, nil
}

func observeStep(step string, start time.Time) {
	stepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
