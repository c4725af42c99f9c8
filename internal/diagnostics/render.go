package diagnostics

import (
	"fmt"

	"github.com/vesaa/arcbot/internal/gateway"
	"github.com/vesaa/arcbot/internal/latency"
)

// Presentation is the static branding of the report.
type Presentation struct {
	URL         string
	Description string
	Color       int
}

// Render formats a snapshot as the report embed.
func Render(s *Snapshot, p Presentation) *gateway.Embed {
	e := &gateway.Embed{
		Title:       fmt.Sprintf("**%s** - v%s", s.Bot.Name, s.Version),
		URL:         p.URL,
		Description: p.Description,
		Color:       p.Color,
		Fields: []gateway.EmbedField{
			{
				Name: "Statistics:",
				Value: fmt.Sprintf("Shards: %d\nGuilds: %d\nChannels: %d\nPrivate Channels: %d",
					s.Shards, s.Guilds, s.Channels, s.PrivateChannels),
				Inline: true,
			},
			{
				Name: "Lines of code:",
				Value: fmt.Sprintf("Blank: %d\nComment: %d\nCode: %d\nTotal Lines: %d",
					s.Source.Blank, s.Source.Comment, s.Source.Code, s.Source.Lines),
				Inline: true,
			},
			{
				Name:   "Currently hosted by:",
				Value:  fmt.Sprintf("Tag: %s\nID: %d", s.Hoster.Tag(), s.Hoster.ID),
				Inline: true,
			},
			{
				Name: "Latency:",
				Value: fmt.Sprintf("Gateway:\n`%s`\nREST:\n`%s`",
					latency.FormatSample(s.Gateway, latency.FormatMillis), latency.FormatMillis(s.REST)),
				Inline: true,
			},
			{
				Name: "Memory usage:",
				Value: fmt.Sprintf("Complete:\n`%s KB`\nBase:\n`%s KB`",
					FormatThousands(s.Memory.TotalKB), FormatThousands(s.Memory.BaselineKB)),
				Inline: true,
			},
			{
				Name: "Somewhat Static Stats:",
				Value: fmt.Sprintf("Command Count:\n`%d`\nUptime:\n`%s`",
					s.Source.Commands, FormatUptime(s.Uptime)),
				Inline: true,
			},
		},
	}
	if s.Bot.AvatarURL != "" {
		e.Thumbnail = &gateway.EmbedThumbnail{URL: s.Bot.AvatarURL}
	}
	return e
}

// Field returns the value of the named field, or "" if the embed has none.
func Field(e *gateway.Embed, name string) string {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}
