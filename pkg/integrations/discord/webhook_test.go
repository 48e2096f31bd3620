package discord

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	_, err := NewMessage("", nil)
	require.ErrorIs(t, err, ErrEmptyContent)
	assert.Equal(t, "String empty", err.Error())

	message, err := NewMessage("report ready", []models.DiscordAttachment{
		{Name: "q3.pdf", Link: "https://drive.google.com/file/d/1"},
	})
	require.NoError(t, err)
	require.Len(t, message.Embeds, 1)
	assert.Equal(t, Embed{
		Title:       "q3.pdf",
		URL:         "https://drive.google.com/file/d/1",
		Description: "Click to view file in Google Drive",
		Color:       4886754,
	}, message.Embeds[0])

	plain, err := NewMessage("hi", nil)
	require.NoError(t, err)

	payload, err := json.Marshal(plain)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"hi"}`, string(payload))
}

func TestWebhookClient_Post(t *testing.T) {
	var received Message

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.Client())

	require.NoError(t, client.Post(t.Context(), server.URL+"/hook", Message{Content: "hello"}))
	assert.Equal(t, "hello", received.Content)

	assert.Error(t, client.Post(t.Context(), server.URL+"/broken", Message{Content: "hello"}))
}
