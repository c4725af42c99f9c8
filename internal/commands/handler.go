// Package commands implements the chat commands that drive arcbot's core:
// ping, about, prefix and the owner-only test command.
//
// Every command handler carries the //arcbot:command marker on the line
// above it; the diagnostics report counts those markers.
package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vesaa/arcbot/internal/diagnostics"
	"github.com/vesaa/arcbot/internal/gateway"
	"github.com/vesaa/arcbot/internal/latency"
)

var (
	// ErrUnknownCommand is returned for names outside the command table.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNotOwner is returned when a non-owner runs an owner-only command.
	ErrNotOwner = errors.New("command is restricted to bot owners")
)

// Invocation is one command call as reported by the transport.
type Invocation struct {
	ID        string  `json:"id"`
	Command   string  `json:"command" binding:"required"`
	Args      string  `json:"args"`
	GuildID   *uint64 `json:"guild_id,string,omitempty"` // nil in direct messages
	ChannelID uint64  `json:"channel_id,string" binding:"required"`
	ShardID   uint32  `json:"shard_id"`
	AuthorID  uint64  `json:"author_id,string"`
}

// Reporter produces and delivers a diagnostics report.
type Reporter interface {
	Report(ctx context.Context, req diagnostics.Request) (*diagnostics.Snapshot, error)
}

// PrefixResolver resolves the prefix for a guild, or for a direct message
// when guildID is nil.
type PrefixResolver interface {
	Resolve(ctx context.Context, guildID *uint64) (string, error)
}

// Deps are the collaborators commands run against.
type Deps struct {
	Shards    latency.ShardSource // nil when the transport has no shard manager
	Messenger gateway.Messenger
	Reporter  Reporter
	Prefixes  PrefixResolver
	Owners    []uint64
	Logger    *zap.Logger
}

type command struct {
	name      string
	aliases   []string
	ownerOnly bool
	run       func(ctx context.Context, inv Invocation) error
}

// Handler dispatches invocations to command handlers.
type Handler struct {
	deps   Deps
	prober *latency.Prober
	table  map[string]*command
	log    *zap.Logger
}

// NewHandler builds the command table.
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Handler{
		deps:   deps,
		prober: latency.NewProber(),
		table:  make(map[string]*command),
		log:    deps.Logger.Named("commands"),
	}
	for _, c := range []*command{
		{name: "ping", aliases: []string{"pong", "latency"}, run: h.ping},
		{name: "about", aliases: []string{"info"}, run: h.about},
		{name: "prefix", aliases: []string{"prefixes"}, run: h.prefix},
		{name: "test", ownerOnly: true, run: h.test},
	} {
		h.table[c.name] = c
		for _, a := range c.aliases {
			h.table[a] = c
		}
	}
	return h
}

// Names returns the primary command names, sorted.
func (h *Handler) Names() []string {
	var out []string
	for key, c := range h.table {
		if key == c.name {
			out = append(out, c.name)
		}
	}
	slices.Sort(out)
	return out
}

// Dispatch runs the command named by inv. Errors are logged here and
// returned; they never outlive the invocation.
func (h *Handler) Dispatch(ctx context.Context, inv Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	log := h.log.With(
		zap.String("invocation", inv.ID),
		zap.String("command", inv.Command),
		zap.Uint64("channel", inv.ChannelID))

	c, ok := h.table[strings.ToLower(inv.Command)]
	if !ok {
		log.Debug("unknown command")
		return fmt.Errorf("%w: %q", ErrUnknownCommand, inv.Command)
	}
	if c.ownerOnly && !slices.Contains(h.deps.Owners, inv.AuthorID) {
		log.Info("owner-only command refused", zap.Uint64("author", inv.AuthorID))
		return ErrNotOwner
	}

	if err := c.run(ctx, inv); err != nil {
		log.Error("command failed", zap.Error(err))
		return fmt.Errorf("running %s: %w", c.name, err)
	}
	log.Debug("command completed")
	return nil
}

func (h *Handler) say(ctx context.Context, channelID uint64, content string) error {
	_, err := h.deps.Messenger.SendMessage(ctx, channelID, gateway.MessageData{Content: content})
	return err
}
