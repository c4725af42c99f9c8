// Package prefix resolves the command prefix that applies to a message.
package prefix

import (
	"context"
	"fmt"

	"github.com/vesaa/arcbot/internal/models"
)

// Store reads a guild's prefix row. found is false when the guild has no
// row; a found row may still carry a nil prefix.
type Store interface {
	GuildPrefix(ctx context.Context, guildID int64) (prefix *string, found bool, err error)
}

// Resolver answers prefix lookups against a Store, falling back to a default
// fixed at construction. It holds no cache: every guild lookup reads the
// store once.
type Resolver struct {
	store  Store
	defPfx string
}

// NewResolver creates a Resolver.
func NewResolver(store Store, defaultPrefix string) *Resolver {
	return &Resolver{store: store, defPfx: defaultPrefix}
}

// Default returns the fallback prefix.
func (r *Resolver) Default() string { return r.defPfx }

// Resolve returns the prefix for guildID. A nil guildID is a direct message
// and gets the default without touching the store. A missing row or NULL
// prefix also gets the default; an empty configured prefix is returned as is.
func (r *Resolver) Resolve(ctx context.Context, guildID *uint64) (string, error) {
	if guildID == nil {
		return r.defPfx, nil
	}

	p, found, err := r.store.GuildPrefix(ctx, models.StoreGuildID(*guildID))
	if err != nil {
		return "", fmt.Errorf("resolving prefix for guild %d: %w", *guildID, err)
	}
	if !found || p == nil {
		return r.defPfx, nil
	}
	return *p, nil
}
