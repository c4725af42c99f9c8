package diagnostics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vesaa/arcbot/internal/gateway"
)

func TestRender_NoAvatarNoHeartbeat(t *testing.T) {
	s := &Snapshot{
		Bot:     gateway.User{ID: 1, Name: "arcbot"},
		Hoster:  gateway.User{ID: 2, Name: "host", Discriminator: "0"},
		Version: "1.0.0",
		Uptime:  59 * time.Second,
		REST:    7*time.Millisecond + 900*time.Microsecond,
	}

	e := Render(s, Presentation{Description: "desc"})
	assert.Equal(t, "**arcbot** - v1.0.0", e.Title)
	assert.Equal(t, "desc", e.Description)
	assert.Nil(t, e.Thumbnail)
	assert.Len(t, e.Fields, 6)
	assert.Equal(t, "Gateway:\n`?ms`\nREST:\n`7ms`", Field(e, "Latency:"))
	assert.Equal(t, "Tag: host\nID: 2", Field(e, "Currently hosted by:"))
	assert.Equal(t, "Command Count:\n`0`\nUptime:\n`0:00:59`", Field(e, "Somewhat Static Stats:"))
	assert.Empty(t, Field(e, "Nope:"))
}
