package gateway

import "context"

// EmbedField is one titled block of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedThumbnail references an image shown beside the embed.
type EmbedThumbnail struct {
	URL string `json:"url"`
}

// Embed is a structured multi-field message body.
type Embed struct {
	Title       string          `json:"title,omitempty"`
	URL         string          `json:"url,omitempty"`
	Description string          `json:"description,omitempty"`
	Color       int             `json:"color,omitempty"`
	Fields      []EmbedField    `json:"fields,omitempty"`
	Thumbnail   *EmbedThumbnail `json:"thumbnail,omitempty"`
}

// MessageData is what is sent or written over an existing message.
type MessageData struct {
	Content string `json:"content"`
	Embed   *Embed `json:"embed,omitempty"`
}

// Message is a delivered message handle.
type Message struct {
	ID        uint64 `json:"id,string"`
	ChannelID uint64 `json:"channel_id,string"`
	Content   string `json:"content"`
	Embed     *Embed `json:"embed,omitempty"`
}

// Messenger delivers messages to channels and edits them in place.
type Messenger interface {
	SendMessage(ctx context.Context, channelID uint64, data MessageData) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID uint64, data MessageData) (*Message, error)
}
