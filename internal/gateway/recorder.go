package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Recorder is an in-memory Messenger. It keeps every channel's messages so a
// caller can inspect the final state, and is used by the offline "diag"
// command and by tests.
type Recorder struct {
	// OnSend, if set, runs before a message is stored. An error aborts the send.
	OnSend func(channelID uint64, data MessageData) error
	// OnEdit, if set, runs before an edit is applied. An error aborts the edit.
	OnEdit func(channelID, messageID uint64, data MessageData) error

	mu     sync.Mutex
	nextID uint64
	msgs   map[uint64][]*Message
	sends  int
	edits  int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{msgs: make(map[uint64][]*Message)}
}

// SendMessage stores a new message.
func (r *Recorder) SendMessage(ctx context.Context, channelID uint64, data MessageData) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.OnSend != nil {
		if err := r.OnSend(channelID, data); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.sends++
	m := &Message{ID: r.nextID, ChannelID: channelID, Content: data.Content, Embed: data.Embed}
	r.msgs[channelID] = append(r.msgs[channelID], m)
	out := *m
	return &out, nil
}

// EditMessage replaces the content and embed of an existing message.
func (r *Recorder) EditMessage(ctx context.Context, channelID, messageID uint64, data MessageData) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.OnEdit != nil {
		if err := r.OnEdit(channelID, messageID, data); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs[channelID] {
		if m.ID == messageID {
			m.Content = data.Content
			m.Embed = data.Embed
			r.edits++
			out := *m
			return &out, nil
		}
	}
	return nil, fmt.Errorf("message %d not found in channel %d", messageID, channelID)
}

// Messages returns copies of the messages in a channel, oldest first.
func (r *Recorder) Messages(channelID uint64) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, 0, len(r.msgs[channelID]))
	for _, m := range r.msgs[channelID] {
		out = append(out, *m)
	}
	return out
}

// Counts returns how many sends and edits were applied.
func (r *Recorder) Counts() (sends, edits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sends, r.edits
}
