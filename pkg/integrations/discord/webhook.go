// Package discord posts messages to Discord channel webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flowzen/flowzen/pkg/models"
)

const (
	attachmentDescription = "Click to view file in Google Drive"
	attachmentColor       = 4886754
)

var ErrEmptyContent = errors.New("String empty")

type Embed struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type Message struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// NewMessage builds the webhook payload, one embed per attachment.
func NewMessage(content string, attachments []models.DiscordAttachment) (Message, error) {
	if content == "" {
		return Message{}, ErrEmptyContent
	}

	message := Message{Content: content}

	for _, attachment := range attachments {
		message.Embeds = append(message.Embeds, Embed{
			Title:       attachment.Name,
			URL:         attachment.Link,
			Description: attachmentDescription,
			Color:       attachmentColor,
		})
	}

	return message, nil
}

type Client interface {
	Post(ctx context.Context, webhookURL string, message Message) error
}

type WebhookClient struct {
	http *http.Client
}

func NewClient(httpClient *http.Client) *WebhookClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &WebhookClient{http: httpClient}
}

func (c *WebhookClient) Post(ctx context.Context, webhookURL string, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal discord message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build discord request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord webhook returned %s", resp.Status)
	}

	return nil
}
