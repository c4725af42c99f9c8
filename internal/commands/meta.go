package commands

import (
	"context"
	"fmt"

	"github.com/vesaa/arcbot/internal/diagnostics"
	arcerrors "github.com/vesaa/arcbot/internal/errors"
	"github.com/vesaa/arcbot/internal/gateway"
	"github.com/vesaa/arcbot/internal/latency"
	"github.com/vesaa/arcbot/internal/payload"
)

const (
	noShardManager = "There was a problem getting the shard manager"
	noShard        = "No shard found"
)

// ping reports the gateway heartbeat and a fresh REST round trip.
//
//arcbot:command
func (h *Handler) ping(ctx context.Context, inv Invocation) error {
	if h.deps.Shards == nil {
		return h.say(ctx, inv.ChannelID, noShardManager)
	}
	sample, err := latency.Gateway(h.deps.Shards, inv.ShardID)
	if err != nil {
		return h.say(ctx, inv.ChannelID, noShard)
	}

	var msg *gateway.Message
	rest, err := h.prober.MeasureREST(ctx, func(ctx context.Context) error {
		m, err := h.deps.Messenger.SendMessage(ctx, inv.ChannelID, gateway.MessageData{Content: diagnostics.Placeholder})
		msg = m
		return err
	})
	if err != nil {
		return err
	}

	content := fmt.Sprintf("Ping?\nGateway: %s\nREST: %dms",
		latency.FormatSample(sample, latency.FormatPrecise), rest.Milliseconds())
	_, err = h.deps.Messenger.EditMessage(ctx, inv.ChannelID, msg.ID, gateway.MessageData{Content: content})
	return err
}

// about sends the full diagnostics report.
//
//arcbot:command
func (h *Handler) about(ctx context.Context, inv Invocation) error {
	_, err := h.deps.Reporter.Report(ctx, diagnostics.Request{ChannelID: inv.ChannelID, ShardID: inv.ShardID})
	if h.deps.Shards == nil && arcerrors.HasCode(err, arcerrors.ErrCodeTransportUnavailable) {
		return h.say(ctx, inv.ChannelID, noShardManager)
	}
	return err
}

// prefix sends the prefix in effect where it was invoked.
//
//arcbot:command
func (h *Handler) prefix(ctx context.Context, inv Invocation) error {
	p, err := h.deps.Prefixes.Resolve(ctx, inv.GuildID)
	if err != nil {
		return err
	}
	return h.say(ctx, inv.ChannelID, fmt.Sprintf("Current prefix:\n`%s`", p))
}

// test sends the embed described by its arguments.
//
//arcbot:command
func (h *Handler) test(ctx context.Context, inv Invocation) error {
	embed, err := payload.ParseEmbed(inv.Args)
	if err != nil {
		return err
	}
	_, err = h.deps.Messenger.SendMessage(ctx, inv.ChannelID, gateway.MessageData{Embed: embed})
	return err
}
