package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesaa/arcbot/internal/gateway"
)

func TestClient_SendAndEdit(t *testing.T) {
	var gotAuth, gotRequestID string
	var edited gateway.MessageData

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-Id")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/channels/5/messages":
			var data gateway.MessageData
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&data))
			_ = json.NewEncoder(w).Encode(gateway.Message{ID: 77, ChannelID: 5, Content: data.Content})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/channels/5/messages/77":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&edited))
			_ = json.NewEncoder(w).Encode(gateway.Message{ID: 77, ChannelID: 5, Embed: edited.Embed})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", "tok", time.Second)
	ctx := context.Background()

	msg, err := c.SendMessage(ctx, 5, gateway.MessageData{Content: "Calculating latency..."})
	require.NoError(t, err)
	assert.Equal(t, uint64(77), msg.ID)
	assert.Equal(t, "Calculating latency...", msg.Content)
	assert.Equal(t, "Bot tok", gotAuth)
	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err)

	_, err = c.EditMessage(ctx, 5, 77, gateway.MessageData{Embed: &gateway.Embed{Title: "report"}})
	require.NoError(t, err)
	require.NotNil(t, edited.Embed)
	assert.Equal(t, "report", edited.Embed.Title)
	assert.Empty(t, edited.Content)
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/channels/1/messages" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.Error(w, "missing access", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)

	_, err := c.SendMessage(context.Background(), 1, gateway.MessageData{Content: "x"})
	assert.ErrorContains(t, err, "401")

	_, err = c.SendMessage(context.Background(), 2, gateway.MessageData{Content: "x"})
	assert.ErrorContains(t, err, "403")
	assert.ErrorContains(t, err, "missing access")
}
