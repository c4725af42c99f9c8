// Package rest implements gateway.Messenger against the host platform's REST
// API. Every request carries "Authorization: Bot <token>" and a fresh
// X-Request-Id.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vesaa/arcbot/internal/gateway"
)

// Client talks to the host REST API.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient creates a Client for the API rooted at baseURL, e.g.
// "https://host.example/api/v10".
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		http:  &http.Client{Timeout: timeout},
	}
}

// SendMessage posts a new message to a channel.
//
//	POST {base}/channels/{channel}/messages
func (c *Client) SendMessage(ctx context.Context, channelID uint64, data gateway.MessageData) (*gateway.Message, error) {
	url := fmt.Sprintf("%s/channels/%d/messages", c.base, channelID)
	var msg gateway.Message
	if err := c.doJSON(ctx, http.MethodPost, url, data, &msg); err != nil {
		return nil, fmt.Errorf("sending message to channel %d: %w", channelID, err)
	}
	return &msg, nil
}

// EditMessage replaces a message's content and embed in place.
//
//	PATCH {base}/channels/{channel}/messages/{message}
func (c *Client) EditMessage(ctx context.Context, channelID, messageID uint64, data gateway.MessageData) (*gateway.Message, error) {
	url := fmt.Sprintf("%s/channels/%d/messages/%d", c.base, channelID, messageID)
	var msg gateway.Message
	if err := c.doJSON(ctx, http.MethodPatch, url, data, &msg); err != nil {
		return nil, fmt.Errorf("editing message %d: %w", messageID, err)
	}
	return &msg, nil
}

// doJSON sends v as JSON and decodes the response body into out.
func (c *Client) doJSON(ctx context.Context, method, url string, v, out any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bot "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("host rejected token (401), check rest_token in config")
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("host returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
