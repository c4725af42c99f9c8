package gateway

import (
	"fmt"
	"sync"
)

// User is the cached identity of an account.
type User struct {
	ID            uint64 `json:"id,string"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

// Tag renders the user the way the platform shows it: name#discriminator,
// or just the name for accounts without a discriminator.
func (u User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Name
	}
	return fmt.Sprintf("%s#%s", u.Name, u.Discriminator)
}

// Stats is a point-in-time copy of the cached client state.
type Stats struct {
	Guilds          int
	Channels        int
	PrivateChannels int
	Shards          int
	CurrentUser     User
	Owner           User
}

// CacheState is the full cache image the transport reports.
type CacheState struct {
	Guilds          map[uint64]int `json:"guilds"` // guild id -> channel count
	PrivateChannels int            `json:"private_channels"`
	ShardCount      int            `json:"shard_count"`
	CurrentUser     User           `json:"current_user"`
	Owner           User           `json:"owner"`
}

// Cache is the in-memory client cache. Reading it never touches the network.
type Cache struct {
	mu              sync.RWMutex
	guildChannels   map[uint64]int
	privateChannels int
	shardCount      int
	currentUser     User
	owner           User
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{guildChannels: make(map[uint64]int)}
}

// Replace swaps in a full cache image.
func (c *Cache) Replace(state CacheState) {
	guilds := make(map[uint64]int, len(state.Guilds))
	for id, n := range state.Guilds {
		guilds[id] = n
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.guildChannels = guilds
	c.privateChannels = state.PrivateChannels
	c.shardCount = state.ShardCount
	c.currentUser = state.CurrentUser
	c.owner = state.Owner
}

// SetGuild records a guild and its channel count.
func (c *Cache) SetGuild(guildID uint64, channels int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guildChannels[guildID] = channels
}

// RemoveGuild forgets a guild.
func (c *Cache) RemoveGuild(guildID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guildChannels, guildID)
}

// Stats copies out the counts and identities.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	channels := 0
	for _, n := range c.guildChannels {
		channels += n
	}
	return Stats{
		Guilds:          len(c.guildChannels),
		Channels:        channels,
		PrivateChannels: c.privateChannels,
		Shards:          c.shardCount,
		CurrentUser:     c.currentUser,
		Owner:           c.owner,
	}
}
